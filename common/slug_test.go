package common

import "testing"

func TestSlugify(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		fallback string
		want     string
		wantErr  bool
	}{
		{
			name:  "question with prefix",
			input: "how to convert fractions to decimals?",
			want:  "convert_fractions_to_decimals",
		},
		{
			name:  "what is prefix",
			input: "What is the GCF of 18 and 24?",
			want:  "the_gcf_of_18_and_24",
		},
		{
			name:  "no prefix",
			input: "Random Topic",
			want:  "random_topic",
		},
		{
			name:  "punctuation collapsed",
			input: "show me the money!!!",
			want:  "the_money",
		},
		{
			name:     "empty input uses fallback",
			input:    "???",
			fallback: "scene",
			want:     "scene",
		},
		{
			name:    "nothing usable",
			input:   "!!!",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Slugify(tt.input, tt.fallback)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Slugify(%q) expected error, got %q", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Slugify(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Slugify(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
