// Package security summarizes the security posture of an engine
// configuration and flags weak settings.
package security
