package collector

import "testing"

func TestMatchesRuntime(t *testing.T) {
	tests := []struct {
		name    string
		proc    string
		cmdline []string
		needle  string
		want    bool
	}{
		{"name match", "vllm", nil, "vllm", true},
		{"name match case insensitive", "VLLM-worker", nil, "vllm", true},
		{"cmdline match", "python3", []string{"python3", "-m", "vllm.entrypoints.openai.api_server"}, "vllm", true},
		{"no match", "nginx", []string{"nginx", "-g", "daemon off;"}, "vllm", false},
		{"empty needle never matches", "vllm", nil, "", false},
		{"substring in argument value", "python3", []string{"--model", "/models/vllm-cache/qwen3"}, "vllm", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := matchesRuntime(tt.proc, tt.cmdline, tt.needle); got != tt.want {
				t.Errorf("matchesRuntime(%q, %v, %q) = %v, want %v", tt.proc, tt.cmdline, tt.needle, got, tt.want)
			}
		})
	}
}
