//go:build linux

package login

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const desktopName = "dictate.desktop"

// autostartPath follows the XDG autostart spec.
func autostartPath() (string, error) {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "autostart", desktopName), nil
}

func Enabled() bool {
	path, err := autostartPath()
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// desktopEntry quotes exec for the Exec key and prefixes the passed
// environment through env(1).
func desktopEntry(exe string, environ func(string) string) string {
	var cmd strings.Builder
	var vars []string
	for _, key := range passEnv {
		if v := environ(key); v != "" {
			vars = append(vars, key+"="+quoteExec(v))
		}
	}
	if len(vars) > 0 {
		cmd.WriteString("env ")
		cmd.WriteString(strings.Join(vars, " "))
		cmd.WriteString(" ")
	}
	cmd.WriteString(quoteExec(exe))

	return fmt.Sprintf(`[Desktop Entry]
Type=Application
Name=Dictate
Comment=Hotkey dictation
Exec=%s
Terminal=false
X-GNOME-Autostart-enabled=true
`, cmd.String())
}

func quoteExec(s string) string {
	if !strings.ContainsAny(s, " \t\"'\\$`") {
		return s
	}
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "`", "\\`", `$`, `\$`)
	return `"` + r.Replace(s) + `"`
}

func Enable() error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}
	path, err := autostartPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create autostart dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(desktopEntry(exe, os.Getenv)), 0600); err != nil {
		return fmt.Errorf("write desktop entry: %w", err)
	}
	return nil
}

func Disable() error {
	path, err := autostartPath()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove desktop entry: %w", err)
	}
	return nil
}
