package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplySubdivisionFilter(t *testing.T) {
	query := `SELECT id FROM people p`
	var args []any
	ApplySubdivisionFilter(&query, &args, AllSubdivisions(), "p", true)
	assert.Equal(t, `SELECT id FROM people p`, query)
	assert.Empty(t, args)

	args = []any{"x"}
	query = `SELECT id FROM people p WHERE p.full_name ILIKE $1`
	ApplySubdivisionFilter(&query, &args, SubdivisionScope("02"), "p", false)
	assert.Equal(t, `SELECT id FROM people p WHERE p.full_name ILIKE $1 AND p.subdivision = $2`, query)
	assert.Equal(t, []any{"x", "02"}, args)

	query = `SELECT id FROM transactions`
	args = nil
	ApplySubdivisionFilter(&query, &args, SubdivisionScope(" 01 "), "", true)
	assert.Equal(t, `SELECT id FROM transactions WHERE subdivision = $1`, query)
	assert.Equal(t, []any{"01"}, args)
}

func TestScope_Allows(t *testing.T) {
	assert.True(t, AllSubdivisions().Allows("07"))
	s := SubdivisionScope("02")
	assert.True(t, s.Allows("02"))
	assert.False(t, s.Allows("01"))
	assert.False(t, s.Allows(""))
	assert.Equal(t, "rt:02", s.String())
	assert.Equal(t, "all", AllSubdivisions().String())
}

func TestNewPrincipal(t *testing.T) {
	rt := "03"

	p, err := NewPrincipal("u1", "Budi", RoleTreasurer, &rt)
	require.NoError(t, err)
	require.True(t, p.Scope.IsRestricted())
	assert.Equal(t, "03", *p.Scope.SubdivisionCode)

	// RW 级角色忽略存储的 RT
	p, err = NewPrincipal("u2", "Siti", RoleTopLevelCoordinator, &rt)
	require.NoError(t, err)
	assert.False(t, p.Scope.IsRestricted())

	p, err = NewPrincipal("u3", "Dev", RolePlatformDeveloper, nil)
	require.NoError(t, err)
	assert.False(t, p.Scope.IsRestricted())

	// RT 级角色没有 RT 代码时拒绝
	_, err = NewPrincipal("u4", "Andi", RoleSecretary, nil)
	assert.Error(t, err)
	blank := "  "
	_, err = NewPrincipal("u4", "Andi", RoleSecretary, &blank)
	assert.Error(t, err)
}
