// Package config loads runtime configuration for the medkeeper CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see Defaults).
//  2. Optional YAML or JSON file selected via flags: -c or -config.
//  3. Environment variables prefixed with MEDKEEPER_; a double underscore
//     separates levels, so MEDKEEPER_SERVER__URL sets server.url.
//  4. Command-line flags, which override everything else.
//
// Supported flags
//
//	-a string   base URL of the backend API
//	-i int      subscription status poll interval (seconds)
//	-l string   display language (en or ar)
//
// # File schema
//
// Durations accept Go duration strings:
//
//	server:
//	  url: https://api.example.com
//	  request_timeout: 15s
//	subscription:
//	  poll_interval: 60s
//	language: ar
package config
