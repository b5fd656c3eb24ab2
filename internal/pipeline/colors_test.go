package pipeline

import (
	"reflect"
	"testing"
)

func TestInvalidColors(t *testing.T) {
	tests := []struct {
		name string
		code string
		want []string
	}{
		{
			name: "allow-listed colors pass",
			code: `a.set_color("red")` + "\n" + `b = Text("x", color="blue_a")`,
			want: nil,
		},
		{
			name: "set_color with unknown literal",
			code: `a.set_color("cyan")`,
			want: []string{"cyan"},
		},
		{
			name: "color kwarg with unknown literal",
			code: `Text("x", color="magenta")`,
			want: []string{"magenta"},
		},
		{
			name: "Color factory with unknown literal",
			code: `c = Color("neon_green")`,
			want: []string{"neon_green"},
		},
		{
			name: "set_fill and set_stroke checked",
			code: `a.set_fill("chartreuse")` + "\n" + `a.set_stroke("vermilion")`,
			want: []string{"chartreuse", "vermilion"},
		},
		{
			name: "duplicates reported once, sorted",
			code: `a.set_color("zzz")` + "\n" + `b.set_color("zzz")` + "\n" + `c.set_color("aaa")`,
			want: []string{"aaa", "zzz"},
		},
		{
			name: "case-insensitive allow-list match",
			code: `a.set_color("RED")`,
			want: nil,
		},
		{
			name: "bare identifiers are not string literals",
			code: `a.set_color(RED_HERRING)`,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InvalidColors(tt.code); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("InvalidColors() = %v, want %v", got, tt.want)
			}
		})
	}
}
