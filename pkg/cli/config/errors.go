package config

import "github.com/m-mizutani/goerr/v2"

var (
	ErrConfigNotFound = goerr.New("configuration file not found")
	ErrInvalidConfig  = goerr.New("invalid configuration")
)

const ConfigPathKey = "config_path"
