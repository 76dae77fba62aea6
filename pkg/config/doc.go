// Package config loads typed configuration structs from environment variables
// (and an optional .env file) using caarlos0/env tags. Configuration is read
// once at process start and passed into component constructors; business logic
// never reads ambient environment variables.
package config
