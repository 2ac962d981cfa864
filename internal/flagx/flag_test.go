package flagx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	tests := []struct {
		name         string
		args         []string
		allowedFlags []string
		want         []string
	}{
		{
			name:         "separate value",
			args:         []string{"-c", "medkeeper.yaml", "-l", "ar"},
			allowedFlags: []string{"-c", "--config"},
			want:         []string{"-c", "medkeeper.yaml"},
		},
		{
			name:         "equals form",
			args:         []string{"--config=alt.yaml", "-a", "http://localhost"},
			allowedFlags: []string{"-c", "--config"},
			want:         []string{"--config=alt.yaml"},
		},
		{
			name:         "unknown flags ignored",
			args:         []string{"-x", "1", "--y=2", "positional"},
			allowedFlags: []string{"-c"},
			want:         []string{},
		},
		{
			name:         "flag without value at end",
			args:         []string{"-c"},
			allowedFlags: []string{"-c"},
			want:         []string{"-c"},
		},
		{
			name:         "next dash token is not a value",
			args:         []string{"-c", "-i", "30"},
			allowedFlags: []string{"-c"},
			want:         []string{"-c"},
		},
		{
			name:         "several allowed flags keep order",
			args:         []string{"-a", "http://api", "-c", "conf.yaml", "--other", "x", "-i", "60"},
			allowedFlags: []string{"-a", "-i"},
			want:         []string{"-a", "http://api", "-i", "60"},
		},
		{
			name:         "empty",
			args:         nil,
			allowedFlags: []string{"-c"},
			want:         []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterArgs(tt.args, tt.allowedFlags))
		})
	}
}

func TestConfigFileFlag(t *testing.T) {
	assert.Equal(t, "/etc/medkeeper.yaml", ConfigFileFlag([]string{"-c", "/etc/medkeeper.yaml"}))
	assert.Equal(t, "long.yaml", ConfigFileFlag([]string{"-a", "http://x", "-config", "long.yaml"}))
	assert.Equal(t, "eq.yaml", ConfigFileFlag([]string{"--config=eq.yaml"}))
	assert.Equal(t, "2.yaml", ConfigFileFlag([]string{"-c", "1.yaml", "-config", "2.yaml"}))
	assert.Empty(t, ConfigFileFlag([]string{"-x", "1"}))
}
