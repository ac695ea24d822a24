package qson

import (
	"bytes"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type address struct {
	City string `json:"city"`
	Zip  string `json:"zip,omitempty"`
}

type contact struct {
	Name    string         `json:"name"`
	Age     int            `json:"age"`
	Tags    []string       `json:"tags"`
	Home    address        `json:"home"`
	Scores  map[string]int `json:"scores"`
	Nick    *string        `json:"nick,omitempty"`
	Payload any            `json:"payload"`
}

type treeNode struct {
	Value    int         `json:"value"`
	Children []*treeNode `json:"children"`
}

func TestMarshalUnmarshalRecursiveTreeRoundTrip(t *testing.T) {
	m := NewMapper(DefaultConfig())
	in := treeNode{Value: 1, Children: []*treeNode{
		{Value: 2, Children: []*treeNode{}},
		{Value: 3, Children: []*treeNode{{Value: 4, Children: []*treeNode{}}}},
	}}
	data, err := m.Marshal(in)
	require.NoError(t, err)

	var out treeNode
	require.NoError(t, m.Unmarshal(data, &out))
	require.Len(t, out.Children, 2)
	assert.Equal(t, 1, out.Value)
	assert.Equal(t, 2, out.Children[0].Value)
	assert.Equal(t, 3, out.Children[1].Value)
	require.Len(t, out.Children[1].Children, 1)
	assert.Equal(t, 4, out.Children[1].Children[0].Value)
}

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	m := NewMapper(DefaultConfig())

	in := contact{
		Name:   "Ada",
		Age:    36,
		Tags:   []string{"math", "computing"},
		Home:   address{City: "London"},
		Scores: map[string]int{"algebra": 9},
	}
	data, err := m.Marshal(in)
	require.NoError(t, err)

	var out contact
	require.NoError(t, m.Unmarshal(data, &out))
	assert.Equal(t, in.Name, out.Name)
	assert.Equal(t, in.Age, out.Age)
	assert.Equal(t, in.Tags, out.Tags)
	assert.Equal(t, in.Home, out.Home)
	assert.Equal(t, in.Scores, out.Scores)
}

func TestMarshalOptionalNilPointerOmitted(t *testing.T) {
	// DefaultConfig emits null for absent optional fields; omission is the
	// EmitNullForAbsent=false plan option.
	cfg := DefaultConfig()
	cfg.EmitNullForAbsent = false
	m := NewMapper(cfg)
	in := contact{Name: "Grace", Home: address{City: "NYC"}, Scores: map[string]int{}}
	data, err := m.Marshal(in)
	require.NoError(t, err)
	assert.False(t, strings.Contains(string(data), `"nick"`), "nil pointer nick must be dropped entirely: %s", data)
	assert.False(t, strings.Contains(string(data), `"zip"`), "omitempty zip must be dropped entirely: %s", data)
}

func TestUnmarshalStringAndRejectsStrictTrailing(t *testing.T) {
	m := NewMapper(DefaultConfig())

	var out contact
	err := m.UnmarshalString(`{"name":"Ada","age":1,"tags":[],"home":{"city":"X"},"scores":{}}   `, &out)
	require.NoError(t, err, "trailing whitespace must be tolerated")

	err = m.UnmarshalString(`{"name":"Ada","age":1,"tags":[],"home":{"city":"X"},"scores":{}} garbage`, &out)
	require.Error(t, err, "trailing non-whitespace must be rejected in one-shot mode")
}

func TestUnmarshalReaderToleratesTrailingData(t *testing.T) {
	m := NewMapper(DefaultConfig())
	r := strings.NewReader(`{"name":"Ada","age":1,"tags":[],"home":{"city":"X"},"scores":{}}` + "\nnext-value-in-the-stream")
	var out contact
	require.NoError(t, m.UnmarshalReader(r, &out))
	assert.Equal(t, "Ada", out.Name)
}

func TestUnmarshalReaderAcrossChunkBoundary(t *testing.T) {
	m := NewMapper(DefaultConfig())
	chunks := []string{`["foo"`, `,"bar"]`}
	pr, pw := io.Pipe()
	go func() {
		for _, c := range chunks {
			_, _ = pw.Write([]byte(c))
		}
		_ = pw.Close()
	}()

	var out []string
	require.NoError(t, m.UnmarshalReader(pr, &out))
	assert.Equal(t, []string{"foo", "bar"}, out)
}

func TestMarshalWriterFlushesToWriter(t *testing.T) {
	m := NewMapper(DefaultConfig())
	var buf bytes.Buffer
	require.NoError(t, m.MarshalWriter(&buf, []int{1, 2, 3}))
	assert.Equal(t, "[1,2,3]", buf.String())
}

func TestDefaultMapperSetAndReset(t *testing.T) {
	original := DefaultMapper()
	defer SetDefaultMapper(original)

	custom := NewMapper(Config{StrictTrailing: false})
	SetDefaultMapper(custom)
	assert.Same(t, custom, DefaultMapper())

	ResetDefaultMapper()
	fresh := DefaultMapper()
	assert.NotSame(t, custom, fresh)
	assert.True(t, fresh.Config.StrictTrailing, "ResetDefaultMapper must restore DefaultConfig")
}

func TestDefaultConfigValues(t *testing.T) {
	cfg := DefaultConfig()
	assert.True(t, cfg.EmitNullForAbsent)
	assert.True(t, cfg.StrictTrailing)
	assert.Greater(t, cfg.InitialOutputCapacity, 0)
	assert.Greater(t, cfg.StreamChunkSize, 0)
	assert.Greater(t, cfg.MaxDepth, 0)
}

func TestMapperConcurrentPlanBuildIsSharedOnce(t *testing.T) {
	m := NewMapper(DefaultConfig())
	const n = 16
	type wide struct {
		A, B, C, D string
		E, F, G, H int
	}
	var wg sync.WaitGroup
	results := make([]bool, n)
	wg.Add(n)
	for i := 0; i < n; i++ {
		i := i
		go func() {
			defer wg.Done()
			var out wide
			err := m.Unmarshal([]byte(`{"A":"x","B":"y","C":"z","D":"w","E":1,"F":2,"G":3,"H":4}`), &out)
			results[i] = err == nil
		}()
	}
	wg.Wait()
	for _, ok := range results {
		assert.True(t, ok)
	}
}

func TestPackageLevelConvenienceFunctions(t *testing.T) {
	original := DefaultMapper()
	defer SetDefaultMapper(original)
	ResetDefaultMapper()

	data, err := Marshal([]string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, `["a","b"]`, string(data))

	var out []string
	require.NoError(t, Unmarshal(data, &out))
	assert.Equal(t, []string{"a", "b"}, out)

	s, err := MarshalString(42)
	require.NoError(t, err)
	assert.Equal(t, "42", s)

	var n int
	require.NoError(t, UnmarshalString("42", &n))
	assert.Equal(t, 42, n)
}
