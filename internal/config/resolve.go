package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"os/exec"
	"strings"
)

// ResolveValue expands secret and address references in config values:
//   - op://vault/item/field -> 1Password secret (via `op read`)
//   - srv://record/path -> DNS SRV lookup + path (always HTTPS)
//   - $(...) -> shell command output
//   - ${VAR} or $VAR -> environment variable
//
// Anything else is returned trimmed.
func ResolveValue(value string) (string, error) {
	value = strings.TrimSpace(value)
	switch {
	case value == "":
		return "", nil
	case strings.HasPrefix(value, "op://"):
		return readOnePassword(value)
	case strings.HasPrefix(value, "srv://"):
		return lookupSRV(value)
	case strings.HasPrefix(value, "$(") && strings.HasSuffix(value, ")"):
		return runCommand(value[2 : len(value)-1])
	case strings.HasPrefix(value, "$"):
		return os.ExpandEnv(value), nil
	default:
		return value, nil
	}
}

// readOnePassword handles op://vault/item/field, optionally with
// ?account=example.1password.com.
func readOnePassword(ref string) (string, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("1password: invalid reference %s: %w", ref, err)
	}
	clean := fmt.Sprintf("op://%s%s", u.Host, u.Path)

	args := []string{"read", clean}
	if account := u.Query().Get("account"); account != "" {
		args = append(args, "--account", account)
	}
	out, err := exec.Command("op", args...).Output()
	if err != nil {
		return "", fmt.Errorf("1password: failed to read %s: %s (is 'op' installed and signed in?)", clean, commandError(err))
	}
	return strings.TrimSpace(string(out)), nil
}

// lookupSRV turns srv://_service._proto.domain/path into
// https://host:port/path using the highest priority record.
func lookupSRV(ref string) (string, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("invalid srv:// URL: %w", err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("srv:// URL missing host: %s", ref)
	}

	_, addrs, err := net.LookupSRV("", "", u.Host)
	if err != nil {
		return "", fmt.Errorf("SRV lookup failed for %s: %w", u.Host, err)
	}
	if len(addrs) == 0 {
		return "", fmt.Errorf("no SRV records found for %s", u.Host)
	}
	host := strings.TrimSuffix(addrs[0].Target, ".")
	return fmt.Sprintf("https://%s:%d%s", host, addrs[0].Port, u.Path), nil
}

func runCommand(command string) (string, error) {
	out, err := exec.Command("sh", "-c", command).Output()
	if err != nil {
		return "", fmt.Errorf("command failed: %s", commandError(err))
	}
	return strings.TrimSpace(string(out)), nil
}

func commandError(err error) string {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
		return strings.TrimSpace(string(exitErr.Stderr))
	}
	return err.Error()
}
