// Package manifest loads router manifests.
//
// A manifest configures a pathrouter process: logging, the set of blocked
// handler identifiers, a default version ceiling and the Lua plugins to
// load. The format is chosen by file extension:
//
//	.toml        TOML
//	.yaml, .yml  YAML
//	.hcl         HCL
//
// A TOML manifest looks like:
//
//	blocked = ["legacy:app.user.profile@1"]
//	max_version = 3
//
//	[log]
//	level = "debug"
//	format = "console"
//
//	[[plugin]]
//	name = "users"
//	script = "plugins/users.lua"
//	version = 2
//
// and the same manifest in HCL:
//
//	blocked     = ["legacy:app.user.profile@1"]
//	max_version = 3
//
//	log {
//	  level = "debug"
//	}
//
//	plugin "users" {
//	  script  = "plugins/users.lua"
//	  version = 2
//	}
//
// Relative script paths are resolved against the manifest's directory.
//
// After decoding, environment variables override file values:
//
//	PATHROUTER_LOG_LEVEL     log.level
//	PATHROUTER_LOG_FORMAT    log.format
//	PATHROUTER_BLOCKED       blocked (comma separated, replaces the list)
//	PATHROUTER_MAX_VERSION   max_version ("" or "none" clears it)
package manifest
