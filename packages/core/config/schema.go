package config

const configSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "formats": {
      "type": "array",
      "items": {
        "type": "string",
        "pattern": "^(release|progress|json|junit|tap|html)(=.+)?$"
      }
    },
    "noColor": { "type": "boolean" },
    "release": { "type": "string" },
    "platform": { "type": "string" },
    "commands": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "release": { "type": "array", "items": { "type": "string" }, "minItems": 1 },
        "platform": { "type": "array", "items": { "type": "string" }, "minItems": 1 }
      }
    },
    "history": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "enabled": { "type": "boolean" },
        "path": { "type": "string", "minLength": 1 }
      }
    },
    "notify": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "on": { "enum": ["always", "failure", "success", "recovery"] },
        "slackWebhook": { "type": "string" },
        "slackChannel": { "type": "string" },
        "teamsWebhook": { "type": "string" }
      }
    },
    "metrics": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "file": { "type": "string", "minLength": 1 },
        "prometheusFile": { "type": "string", "minLength": 1 },
        "datadogSite": { "type": "string", "minLength": 1 },
        "datadogEndpoint": { "type": "string", "minLength": 1 },
        "datadogTags": { "type": "array", "items": { "type": "string" } }
      }
    }
  }
}`
