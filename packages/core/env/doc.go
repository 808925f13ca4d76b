// Package env loads .env files for the processes kernspec launches.
//
// Supported syntax: KEY=value, KEY="quoted value", KEY='single quoted',
// optional "export " prefixes and # comments.
package env
