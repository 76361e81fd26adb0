package report

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/perfgo/autodebugify/model"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

var simplifyCFG = model.PassReport{
	File: "/CodeGen/foo.c",
	Pass: "SimplifyCFGPass",
	Bugs: []model.Bug{{
		Action:   model.ActionDrop,
		BBName:   "entry",
		FnName:   "foo",
		Instr:    "%x = load i32* %p",
		Metadata: model.MetadataDILocation,
	}},
}

func TestSinkWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, os.WriteFile(path, []byte("stale\n"), 0644))

	s, err := Create(path)
	require.NoError(t, err)
	require.NoError(t, s.Write(simplifyCFG))
	require.NoError(t, s.Write())
	require.NoError(t, s.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t,
		`{"file":"/CodeGen/foo.c","pass":"SimplifyCFGPass","bugs":[[{"action":"drop","bb-name":"entry","fn-name":"foo","instr":"%x = load i32* %p","metadata":"DILocation"}]]}`+"\n",
		string(data))
}

func TestSinkConcurrentWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	s, err := Create(path)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, s.Write(simplifyCFG, simplifyCFG))
		}()
	}
	wg.Wait()
	require.NoError(t, s.Close())

	reports, bugs := s.Counts()
	require.Equal(t, 32, reports)
	require.Equal(t, 32, bugs)

	loaded, err := Load(zerolog.Nop(), path)
	require.NoError(t, err)
	require.Len(t, loaded, 32)
	for _, r := range loaded {
		require.Equal(t, simplifyCFG, r)
	}
}

func TestRead(t *testing.T) {
	input := strings.Join([]string{
		`{"file": "/a.c", "pass": "GVNPass", "bugs": [[{"action": "drop", "bb-name": "unknown", "fn-name": "f", "instr": "ret void", "metadata": "DILocation"}]]}`,
		``,
		`not json`,
		`{"file":"/b.ll","pass":"GVNPass","bugs":[[{"action":"not-generate","bb-name":"bb","fn-name":"g","instr":"br label %x","metadata":"DILocation"}],[{"action":"drop","bb-name":"bb","fn-name":"g","instr":"ret void","metadata":"DILocation"}]]}`,
	}, "\n")

	reports, err := Read(zerolog.Nop(), strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, reports, 2)
	require.Equal(t, "/a.c", reports[0].File)
	require.Len(t, reports[1].Bugs, 2)
	require.Equal(t, model.ActionNotGenerate, reports[1].Bugs[0].Action)
}

func TestSummarize(t *testing.T) {
	gvn := model.PassReport{File: "/b.c", Pass: "GVNPass", Bugs: []model.Bug{
		{Action: model.ActionDrop},
		{Action: model.ActionNotGenerate},
	}}
	other := simplifyCFG
	other.File = "/other.c"

	summaries := Summarize([]model.PassReport{simplifyCFG, gvn, other, simplifyCFG})
	require.Equal(t, []PassSummary{
		{Pass: "SimplifyCFGPass", Tests: 2, Bugs: 3, Drops: 3},
		{Pass: "GVNPass", Tests: 1, Bugs: 2, Drops: 1, NotGenerate: 1},
	}, summaries)
}
