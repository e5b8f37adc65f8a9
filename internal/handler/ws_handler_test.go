package handler

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildUpgrader_CheckOrigin(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    bool
	}{
		{"dev allows all", nil, "http://anything.test", true},
		{"listed", []string{"https://quiz.example.com"}, "https://quiz.example.com", true},
		{"case insensitive", []string{"https://quiz.example.com"}, "HTTPS://QUIZ.EXAMPLE.COM", true},
		{"unlisted", []string{"https://quiz.example.com"}, "https://evil.test", false},
		{"missing header", []string{"https://quiz.example.com"}, "", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/ws/v1/attempts/1/stream", nil)
			if tc.origin != "" {
				r.Header.Set("Origin", tc.origin)
			}
			u := buildUpgrader(tc.allowed)
			assert.Equal(t, tc.want, u.CheckOrigin(r))
		})
	}
}
