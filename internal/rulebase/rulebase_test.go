package rulebase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CrazyForks/subconverter-go/internal/fetch"
	"github.com/CrazyForks/subconverter-go/internal/model"
)

type failing struct{}

func (failing) Load(context.Context, fetch.Kind, string, string) (string, error) {
	return "", errors.New("boom")
}

func TestLoad_SiblingsShareText(t *testing.T) {
	dir := t.TempDir()
	clashPath := filepath.Join(dir, "clash.yml")
	require.NoError(t, os.WriteFile(clashPath, []byte("port: 7890\n"), 0o644))
	surgePath := filepath.Join(dir, "surge.conf")
	require.NoError(t, os.WriteFile(surgePath, []byte("[General]\n"), 0o644))

	set := Load(context.Background(), fetch.New(fetch.Options{}), "", map[model.Family]string{
		model.FamilyClash: clashPath,
		model.FamilySurge: surgePath,
		model.FamilyLoon:  "",
	})

	assert.Equal(t, "port: 7890\n", set.For(model.Target{Kind: model.TargetClash}))
	assert.Equal(t, "port: 7890\n", set.For(model.Target{Kind: model.TargetClashR}))
	assert.Equal(t, "[General]\n", set.For(model.Target{Kind: model.TargetSurge, Version: 4}))
	assert.Equal(t, "", set.For(model.Target{Kind: model.TargetLoon}))
}

func TestLoad_FailureOmitsFamily(t *testing.T) {
	set := Load(context.Background(), failing{}, "", map[model.Family]string{
		model.FamilyQuanX: "https://example.com/base.conf",
	})
	assert.Empty(t, set)
	assert.Equal(t, "", set.For(model.Target{Kind: model.TargetQuanX}))
}
