package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/heartmarshall/wikititles/internal/app"
	"github.com/heartmarshall/wikititles/internal/app/builder"
	"github.com/heartmarshall/wikititles/internal/domain"
	"github.com/heartmarshall/wikititles/internal/service/resolver"
)

func TestWriteTable(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	writeTable(&buf, []string{"a", "b"}, [][]string{{"東京", "Tokio"}, {"x", "y"}})

	assert.Equal(t, "a     b\n----  -----\n東京  Tokio\nx     y\n", buf.String())
}

func TestRenderResult(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		res  *resolver.Result
		show bool
		want string
	}{
		{
			name: "single",
			res: &resolver.Result{
				Input: "bratislava", Source: "sk", Target: "fi", Direction: domain.DirectionForward,
				Rows: []resolver.Row{{Source: "Bratislava", Target: "Bratislava (Slovakia)"}},
			},
			want: "Bratislava -> Bratislava (Slovakia)\n",
		},
		{
			name: "untranslated listed",
			res: &resolver.Result{
				Input: "praha", Source: "cs", Target: "de", Direction: domain.DirectionForward,
				Rows:         []resolver.Row{{Source: "Praha 1"}},
				Untranslated: []string{"Praha 1"},
			},
			show: true,
			want: "\"praha\" was found in cs but has no de translation\nNot translated (1):\n  Praha 1\n",
		},
		{
			name: "reverse",
			res: &resolver.Result{
				Input: "Tatry", Source: "sk", Target: "fi", Direction: domain.DirectionReverse,
				Rows: []resolver.Row{{Source: "Tatry", Target: "Tatra"}},
			},
			want: "Tatry -> Tatra\n(resolved through fi -> sk links)\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer
			renderResult(&buf, tt.res, tt.show, false)
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestRenderResult_Multiple(t *testing.T) {
	t.Parallel()

	res := &resolver.Result{
		Input: "praha", Source: "cs", Target: "de",
		Rows: []resolver.Row{
			{Source: "Praha", Target: "Prag"},
			{Source: "Praha 1", Target: "Prag 1"},
			{Source: "Praha (nádraží)"},
		},
	}

	var buf bytes.Buffer
	renderResult(&buf, res, false, false)

	out := buf.String()
	assert.Contains(t, out, "2 translations of \"praha\" (cs -> de):")
	assert.Contains(t, out, "Praha 1   Prag 1")
	assert.NotContains(t, out, "nádraží")
}

func TestRenderNotFound(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	renderNotFound(&buf, &domain.PageNotFoundError{Input: "Nonexistent", Source: "sk", Suggestion: "Nonexistentt"})

	assert.Equal(t, "Page \"Nonexistent\" not found in sk.\nDid you mean \"Nonexistentt\"?\n", buf.String())
}

func TestRenderBuild(t *testing.T) {
	t.Parallel()

	pair := domain.Pair{Source: "cs", Target: "de"}
	report := &builder.Report{
		Total:     2,
		Completed: 1,
		Records:   3,
		Units: []builder.UnitResult{
			{Pair: pair, Status: builder.StatusCompleted, Records: 3, Dropped: builder.Dropped{Dangling: 2, EmptyTarget: 1}},
			{Pair: domain.Pair{Source: "cs", Target: "en"}, Status: builder.StatusFailed, Err: errors.New("boom")},
		},
		Failed:  []*domain.UnitError{{Pair: domain.Pair{Source: "cs", Target: "en"}, Err: errors.New("boom")}},
		Dropped: builder.Dropped{Dangling: 2, EmptyTarget: 1},
	}

	var buf bytes.Buffer
	renderBuild(&buf, report)

	assert.Contains(t, buf.String(), "cs->de  completed  3        3\n")
	assert.Contains(t, buf.String(), "cs->en  failed     0        0        boom")
	assert.Contains(t, buf.String(), "links left out: 2 without a page, 1 without a target title")
	assert.Contains(t, buf.String(), "1 of 2 completed, 0 skipped, 1 failed, 3 records")
}

func TestRenderStatus(t *testing.T) {
	t.Parallel()

	st := &app.Status{
		Tables:  map[string][]string{"sk": {"en", "fi"}, "fi": {"sk"}},
		Indexed: []string{"sk"},
	}

	var buf bytes.Buffer
	renderStatus(&buf, st)

	assert.Equal(t, "lang  indexed  links to\n"+
		"----  -------  --------\n"+
		"fi    no       sk\n"+
		"sk    yes      en fi\n"+
		"never ingested\n", buf.String())
}
