// Package config loads and watches the preloader configuration file (preloader.yaml).
//
// Top-level types:
//   - Config{Preloader, Status, Notify}: the full tree parsed from YAML
//   - PreloaderConfig: output, overwrite, mechanism (compile|require), autoloader,
//     memory_limit_mb, ignore_not_found, self_exclude, internal_paths, exclude [],
//     append [], base_dir, condition
//   - ConditionConfig: mode (always|never|one_in|hits), chances, hits
//   - Source: type (file|http|prometheus), path, endpoint, timeout, auth, tls
//   - AuthConfig: mode (mtls|apikey|bearer|basic|none), cert/key/ca files, header,
//     key_env, token_env, username, password_env; Key(), Token() and Password()
//     resolve from environment variables
//   - NotifyConfig, WebhookConfig: post-generation webhook targets
//
// Load(path) reads the YAML file, applies defaults (32 MB limit, compile
// mechanism, self-exclusion on, file status source, 10s timeout, always run),
// validates required fields and enums, then resolves relative status and
// certificate paths against base_dir.
//
// Watch(ctx, path, onChange) uses fsnotify on the file's directory and calls
// onChange with the newly parsed Config once a save settles.
package config
