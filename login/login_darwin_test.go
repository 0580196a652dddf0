//go:build darwin

package login

import (
	"strings"
	"testing"
)

func TestAgentPlistEscapes(t *testing.T) {
	env := map[string]string{"OPENAI_API_KEY": "a<b&c", "DICTATE_LOG_PATH": ""}
	data, err := agentPlist("/Applications/My App/dictate", func(k string) string { return env[k] })
	if err != nil {
		t.Fatal(err)
	}
	s := string(data)
	if !strings.Contains(s, "<string>/Applications/My App/dictate</string>") {
		t.Errorf("missing program path:\n%s", s)
	}
	if !strings.Contains(s, "<string>a&lt;b&amp;c</string>") {
		t.Errorf("value not escaped:\n%s", s)
	}
	if strings.Contains(s, "DICTATE_LOG_PATH") {
		t.Error("empty variables should be skipped")
	}
}
