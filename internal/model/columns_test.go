package model

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultColumnMap(t *testing.T) {
	cm := DefaultColumnMap()

	assert.Equal(t, "dropdown_mknfpjbt", cm.Item.PostCode)
	assert.Equal(t, "text3__1", cm.Item.ProjectName)
	assert.Equal(t, "Revision", cm.Subitem["mirror_1__1"])
	assert.Equal(t, "status_1__1", cm.Create["Reason for Change"])
}

func TestLoadColumnMap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "columns.yaml")
	content := `
item:
  post_code: pc_col
  project_name: pn_col
  created_date: cd_col
subitem:
  mir_1: Company
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cm, err := LoadColumnMap(path)
	require.NoError(t, err)

	assert.Equal(t, "pc_col", cm.Item.PostCode)
	assert.Equal(t, "pn_col", cm.Item.ProjectName)
	assert.Equal(t, map[string]string{"mir_1": "Company"}, cm.Subitem)

	// The create section was omitted so the default fills in.
	assert.Equal(t, DefaultColumnMap().Create, cm.Create)
}

func TestLoadColumnMap_EmptyFileFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "columns.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{}\n"), 0o644))

	cm, err := LoadColumnMap(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultColumnMap(), cm)
}

func TestLoadColumnMap_MissingFile(t *testing.T) {
	_, err := LoadColumnMap(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadColumnMap_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "columns.yaml")
	require.NoError(t, os.WriteFile(path, []byte("item: [not a map"), 0o644))

	_, err := LoadColumnMap(path)
	assert.Error(t, err)
}
