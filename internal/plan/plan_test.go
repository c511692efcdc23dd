package plan

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type mapCatalog struct {
	rels  map[string]Schema
	funcs map[string]Func
}

func (m mapCatalog) Relation(name string) (Schema, bool) {
	s, ok := m.rels[name]
	return s, ok
}

func (m mapCatalog) Function(name string) (Func, bool) {
	f, ok := m.funcs[name]
	return f, ok
}

func testCatalog() mapCatalog {
	return mapCatalog{
		rels: map[string]Schema{
			"logs": {
				{Name: "ts", Type: TypeInt64},
				{Name: "page", Type: TypeString},
				{Name: "artist", Type: TypeString},
			},
			"songs": {
				{Name: "song_id", Type: TypeString},
				{Name: "artist_name", Type: TypeString},
				{Name: "year", Type: TypeInt64},
			},
		},
		funcs: map[string]Func{
			"get_hour": {Name: "get_hour", Args: 1, Returns: TypeInt64},
		},
	}
}

func TestPromote(t *testing.T) {
	cases := []struct {
		a, b, want Type
	}{
		{TypeInt64, TypeInt64, TypeInt64},
		{TypeNull, TypeFloat64, TypeFloat64},
		{TypeString, TypeNull, TypeString},
		{TypeInt64, TypeFloat64, TypeFloat64},
		{TypeFloat64, TypeInt64, TypeFloat64},
		{TypeBool, TypeInt64, TypeString},
		{TypeInt64, TypeString, TypeString},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, Promote(tc.a, tc.b), "Promote(%s, %s)", tc.a, tc.b)
	}
}

func TestOutputSchema_Project(t *testing.T) {
	cat := testCatalog()
	p := Project(
		Filter(Scan("logs"), Eq(Col("page"), Lit("NextSong"))),
		As(Col("ts"), "start_time"),
		As(Call("get_hour", Col("ts")), "hour"),
		Named{Expr: Col("artist")},
	)

	got, err := OutputSchema(p, cat)
	require.NoError(t, err)
	require.Equal(t, Schema{
		{Name: "start_time", Type: TypeInt64},
		{Name: "hour", Type: TypeInt64},
		{Name: "artist", Type: TypeString},
	}, got)
}

func TestOutputSchema_JoinQualified(t *testing.T) {
	cat := testCatalog()
	j := Join(Alias(Scan("logs"), "l"), Alias(Scan("songs"), "s"),
		Eq(QCol("s", "artist_name"), QCol("l", "artist")))
	p := Project(j, As(QCol("l", "ts"), "start_time"), As(QCol("s", "song_id"), "song_id"))

	got, err := OutputSchema(p, cat)
	require.NoError(t, err)
	require.Equal(t, []string{"start_time", "song_id"}, got.Names())
}

func TestOutputSchema_Errors(t *testing.T) {
	cat := testCatalog()
	self := Join(Alias(Scan("logs"), "a"), Alias(Scan("logs"), "b"), Eq(QCol("a", "ts"), QCol("b", "ts")))

	cases := []struct {
		name string
		node Node
		want error
	}{
		{"unknown relation", Scan("nope"), ErrUnknownRelation},
		{"unresolved column", Project(Scan("logs"), Cols("userId")...), ErrUnresolved},
		{"ambiguous column", Project(self, Cols("ts")...), ErrAmbiguous},
		{"unknown function", Project(Scan("logs"), As(Call("get_minute", Col("ts")), "m")), ErrUnknownFunction},
		{"duplicate output", Project(Scan("logs"), As(Col("ts"), "x"), As(Col("page"), "x")), ErrDuplicateOutput},
		{"bad filter", Filter(Scan("logs"), Eq(Col("level"), Lit("paid"))), ErrUnresolved},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := OutputSchema(tc.node, cat)
			require.Error(t, err)
			require.True(t, errors.Is(err, tc.want), "got %v", err)
		})
	}
}

func TestSchemaMerge(t *testing.T) {
	hint := Schema{{Name: "year", Type: TypeInt64}, {Name: "title", Type: TypeString}}
	seen := Schema{{Name: "year", Type: TypeFloat64}, {Name: "extra", Type: TypeBool}}

	got := hint.Merge(seen)
	require.Equal(t, Schema{
		{Name: "year", Type: TypeInt64},
		{Name: "title", Type: TypeString},
		{Name: "extra", Type: TypeBool},
	}, got)
}

func TestAnd(t *testing.T) {
	p := And(Eq(Col("a"), Lit(1)), Eq(Col("b"), Lit("x")), Eq(Col("c"), Lit(2.5)))
	require.Equal(t, "(((a = 1) AND (b = 'x')) AND (c = 2.5))", p.String())
}
