//go:build darwin

package login

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"text/template"
)

const agentLabel = "com.dictate.app"

func agentPath() string {
	return filepath.Join(os.Getenv("HOME"), "Library", "LaunchAgents", agentLabel+".plist")
}

func Enabled() bool {
	_, err := os.Stat(agentPath())
	return err == nil
}

var agentTmpl = template.Must(template.New("plist").Funcs(template.FuncMap{"x": xmlEscape}).Parse(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>Label</key>
	<string>{{x .Label}}</string>
	<key>ProgramArguments</key>
	<array>
		<string>{{x .Exe}}</string>
	</array>
	<key>RunAtLoad</key>
	<true/>
	<key>LimitLoadToSessionType</key>
	<string>Aqua</string>
	<key>EnvironmentVariables</key>
	<dict>
{{- range .Env}}
		<key>{{x .Key}}</key>
		<string>{{x .Value}}</string>
{{- end}}
	</dict>
</dict>
</plist>
`))

func xmlEscape(s string) string {
	var b bytes.Buffer
	xml.EscapeText(&b, []byte(s))
	return b.String()
}

type envVar struct{ Key, Value string }

// agentPlist renders the LaunchAgent for exe with the passed environment.
func agentPlist(exe string, environ func(string) string) ([]byte, error) {
	var vars []envVar
	for _, key := range passEnv {
		if v := environ(key); v != "" {
			vars = append(vars, envVar{key, v})
		}
	}
	var b bytes.Buffer
	err := agentTmpl.Execute(&b, struct {
		Label, Exe string
		Env        []envVar
	}{agentLabel, exe, vars})
	return b.Bytes(), err
}

func launchDomain() string { return fmt.Sprintf("gui/%d", os.Getuid()) }

// Enable writes the agent and loads it into the GUI session.
func Enable() error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}
	data, err := agentPlist(exe, os.Getenv)
	if err != nil {
		return err
	}
	path := agentPath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create LaunchAgents dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write agent: %w", err)
	}

	// an older copy may still be loaded
	exec.Command("launchctl", "bootout", launchDomain(), path).Run()
	if out, err := exec.Command("launchctl", "bootstrap", launchDomain(), path).CombinedOutput(); err != nil {
		return fmt.Errorf("launchctl bootstrap: %w (%s)", err, bytes.TrimSpace(out))
	}
	return nil
}

func Disable() error {
	path := agentPath()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	exec.Command("launchctl", "bootout", launchDomain(), path).Run()
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove agent: %w", err)
	}
	return nil
}
