// SPDX-License-Identifier: MPL-2.0

// Package config handles as9817util configuration using Viper with CUE as the file format.
//
// Configuration is read from the file given with --config, otherwise from
// /etc/as9817util/config.cue, otherwise from $XDG_CONFIG_HOME/as9817util/config.cue.
// When no file exists the built-in defaults apply. The file is validated against
// the embedded #Config schema (config_schema.cue) before its values reach Viper.
package config
