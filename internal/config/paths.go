package config

import "path/filepath"

// Home returns the chatlink root directory (ResolveHome()).
func Home() string {
	return ResolveHome()
}

// MediaDir returns where decrypted media is written, fixed to home/media.
func MediaDir() string {
	return filepath.Join(Home(), "media")
}

// KeyDir returns where key material lives, fixed to home/keys.
func KeyDir() string {
	return filepath.Join(Home(), "keys")
}

// LogsDir returns the log directory, fixed to home/logs.
func LogsDir() string {
	return filepath.Join(Home(), "logs")
}
