package entry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProgram implements Program over a literal type → methods map.
type fakeProgram struct {
	order   []string
	methods map[string][]string
}

func (p *fakeProgram) TypeNames() []string { return p.order }

func (p *fakeProgram) Methods(name string) []string { return p.methods[name] }

func prog(types map[string][]string, order ...string) *fakeProgram {
	return &fakeProgram{order: order, methods: types}
}

func TestParseSpec(t *testing.T) {
	tests := []struct {
		name    string
		spec    string
		want    Candidate
		wantErr bool
	}{
		{"empty selects auto", "", Candidate{}, false},
		{"type and method", "Tool.Main", Candidate{Type: "Tool", Method: "Main"}, false},
		{"last dot splits", "pkg.Tool.Run", Candidate{Type: "pkg.Tool", Method: "Run"}, false},
		{"no dot", "Foo", Candidate{}, true},
		{"trailing dot", "Foo.", Candidate{}, true},
		{"leading dot", ".Main", Candidate{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSpec(tt.spec)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "invalid -entry")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLocateAuto(t *testing.T) {
	t.Run("single Main", func(t *testing.T) {
		p := prog(map[string][]string{"Tool": {"Main"}, "Helper": {"Run"}}, "Tool", "Helper")
		c, err := Locate(p, Candidate{})
		require.NoError(t, err)
		assert.Equal(t, Candidate{Type: "Tool", Method: "Main"}, c)
	})

	t.Run("two Mains across types", func(t *testing.T) {
		p := prog(map[string][]string{"A": {"Main"}, "B": {"Main"}}, "A", "B")
		_, err := Locate(p, Candidate{})
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Equal(t, "Entry point not found. Use -entry.", err.Error())
	})

	t.Run("no Main", func(t *testing.T) {
		p := prog(map[string][]string{"A": {"Run"}}, "A")
		_, err := Locate(p, Candidate{})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Main is literal", func(t *testing.T) {
		p := prog(map[string][]string{"A": {"main", "MainLoop"}}, "A")
		_, err := Locate(p, Candidate{})
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestLocateExplicit(t *testing.T) {
	p := prog(map[string][]string{"Tool": {"Start", "Main"}, "Other": {"Start"}}, "Tool", "Other")

	t.Run("match", func(t *testing.T) {
		c, err := Locate(p, Candidate{Type: "Tool", Method: "Start"})
		require.NoError(t, err)
		assert.Equal(t, Candidate{Type: "Tool", Method: "Start"}, c)
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := Locate(p, Candidate{Type: "Gone", Method: "Start"})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("unknown method", func(t *testing.T) {
		_, err := Locate(p, Candidate{Type: "Tool", Method: "Stop"})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("other types not searched", func(t *testing.T) {
		// Other.Start exists but the explicit mode only searches the
		// named type.
		c, err := Locate(p, Candidate{Type: "Other", Method: "Start"})
		require.NoError(t, err)
		assert.Equal(t, "Other.Start", c.String())
	})
}
