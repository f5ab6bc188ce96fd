package classify

import (
	"reflect"
	"testing"
)

func TestExtractPaths(t *testing.T) {
	tests := []struct {
		name   string
		cmd    string
		want   []string
		parsed bool
	}{
		{
			name:   "simple copy",
			cmd:    "cp ../../etc/passwd ./out",
			want:   []string{"../../etc/passwd", "./out"},
			parsed: true,
		},
		{
			name:   "flags skipped",
			cmd:    "rm -rf /tmp/build",
			want:   []string{"/tmp/build"},
			parsed: true,
		},
		{
			name:   "command name not a path",
			cmd:    "/usr/bin/ls",
			want:   nil,
			parsed: true,
		},
		{
			name:   "bare words ignored",
			cmd:    "git status",
			want:   nil,
			parsed: true,
		},
		{
			name:   "redirect target collected",
			cmd:    "echo hi > /etc/motd",
			want:   []string{"/etc/motd"},
			parsed: true,
		},
		{
			name:   "append redirect collected",
			cmd:    "cat notes >> /var/log/notes.log",
			want:   []string{"/var/log/notes.log"},
			parsed: true,
		},
		{
			name:   "input redirect not collected",
			cmd:    "wc -l < /etc/passwd",
			want:   nil,
			parsed: true,
		},
		{
			name:   "quoted path unwrapped",
			cmd:    `cat "/etc/ssh/sshd_config"`,
			want:   []string{"/etc/ssh/sshd_config"},
			parsed: true,
		},
		{
			name:   "command substitution skipped",
			cmd:    "cat $(find / -name shadow)",
			want:   nil,
			parsed: true,
		},
		{
			name:   "pipeline both sides",
			cmd:    "cat /etc/hosts | tee /tmp/hosts.bak",
			want:   []string{"/etc/hosts", "/tmp/hosts.bak"},
			parsed: true,
		},
		{
			name:   "parse failure falls back to tokens",
			cmd:    "cp /a/b /c/d ((",
			want:   []string{"/a/b", "/c/d"},
			parsed: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, parsed := ExtractPaths(tt.cmd)
			if parsed != tt.parsed {
				t.Errorf("parsed = %v, want %v", parsed, tt.parsed)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ExtractPaths(%q) = %v, want %v", tt.cmd, got, tt.want)
			}
		})
	}
}

func TestIsPathLike(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"/etc/passwd", true},
		{"./out", true},
		{"..", true},
		{"~", true},
		{"subdir/file.txt", true},
		{"-rf", false},
		{"--force", false},
		{"status", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := isPathLike(tt.in); got != tt.want {
			t.Errorf("isPathLike(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
