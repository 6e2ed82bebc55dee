// Package config loads the rotator configuration from a .env file, a YAML file
// and environment variables. It defines the client ID list, the rotation
// strategy and cooldown, upstream API settings, server settings and the
// health report interval.
//
// Besides the variables derived from config keys (ROTATION_STRATEGY,
// UPSTREAM_RATE_LIMIT, ...), the bot's historical names are honoured:
// SOUNDCLOUD_CLIENT_IDS, SOUNDCLOUD_CLIENT_ID, CLIENT_ID_ROTATION_STRATEGY,
// CLIENT_ID_COOLDOWN_SECONDS, LOG_LEVEL and RATE_LIMIT.
package config
