package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		wantPath    string
		wantRequest string
		wantDebug   bool
	}{
		{
			name:     "no arguments",
			args:     nil,
			wantPath: defaultConfigPath,
		},
		{
			name:        "request only",
			args:        []string{"list", "my", "tickets"},
			wantPath:    defaultConfigPath,
			wantRequest: "list my tickets",
		},
		{
			name:     "config path only",
			args:     []string{"custom.yaml"},
			wantPath: "custom.yaml",
		},
		{
			name:        "config path and request",
			args:        []string{"custom.yml", "list", "tickets"},
			wantPath:    "custom.yml",
			wantRequest: "list tickets",
		},
		{
			name:        "debug flag anywhere",
			args:        []string{"list", "--debug", "tickets"},
			wantPath:    defaultConfigPath,
			wantRequest: "list tickets",
			wantDebug:   true,
		},
		{
			name:      "debug flag alone",
			args:      []string{"--debug"},
			wantPath:  defaultConfigPath,
			wantDebug: true,
		},
		{
			name:        "yaml-ish word not in first position is request text",
			args:        []string{"describe", "file.yaml"},
			wantPath:    defaultConfigPath,
			wantRequest: "describe file.yaml",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, request, debug := parseArgs(tt.args)
			assert.Equal(t, tt.wantPath, path)
			assert.Equal(t, tt.wantRequest, request)
			assert.Equal(t, tt.wantDebug, debug)
		})
	}
}
