// Package config loads and watches the spikewatchd configuration file.
//
// Top-level types:
//   - Config — full config tree parsed from YAML: http_port, host, auth,
//     scan, results, watch []
//   - HostConfig — endpoint, timeout, auth, tls for the bridge running
//     inside the animation host
//   - AuthConfig — mode (mtls|apikey|bearer|basic|none), cert/key/ca files,
//     header, key_env, token_env, password_env; Key()/Token()/Password()
//     resolve secrets from environment variables
//   - APIAuthConfig — mode (apikey|none), header, key_env for the service's
//     own HTTP surface
//   - ScanConfig, ResultsConfig, WatchEntry — scan defaults, record TTL,
//     and the seeded watch list
//
// Load(path) reads the YAML file, applies defaults (port 8080, 10s host
// timeout, 1h result TTL, threshold 1.0, 10% progress step), then validates
// required fields, enums, and watch-entry reference syntax.
//
// Watch(ctx, path, onChange) uses fsnotify to detect file changes and calls
// onChange with the newly parsed Config. It handles the rename→create pattern
// used by atomic-save editors (vim, VS Code) by re-adding the watch after
// a rename event.
package config
