package gcn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildTableFusesVOP3(t *testing.T) {
	raw := []rawInstr{
		{"v_add_f32", EncVOP2, ModeDefault, 3, ArchAll},
		{"v_add_f32", EncVOP3A, ModeDefault, 0x103, ArchAll},
		{"v_mad_f32", EncVOP3A, ModeSrc2, 0x141, ArchAll},
	}
	table := buildTable(raw)
	require.Len(t, table, 2)

	ent, err := lookupIn(table, "v_add_f32", ArchGCN10)
	require.NoError(t, err)
	assert.Equal(t, EncVOP2, ent.Encoding1)
	assert.Equal(t, uint16(3), ent.Opcode1)
	assert.Equal(t, EncVOP3A, ent.Encoding2)
	assert.Equal(t, uint16(0x103), ent.Opcode2)

	// a VOP3-only mnemonic keeps a single opcode slot
	ent, err = lookupIn(table, "v_mad_f32", ArchGCN10)
	require.NoError(t, err)
	assert.Equal(t, EncVOP3A, ent.Encoding1)
	assert.Equal(t, NoOpcode2, ent.Opcode2)
}

func TestBuildTableDuplicateRowWhenSecondSlotTaken(t *testing.T) {
	raw := []rawInstr{
		{"v_x", EncVOP2, ModeDefault, 1, ArchAll},
		{"v_x", EncVOP3A, ModeDefault, 0x101, ArchAll},
		{"v_x", EncVOP3B, ModeDefault, 0x201, ArchAll},
	}
	table := buildTable(raw)
	require.Len(t, table, 2)
	assert.Equal(t, uint16(1), table[0].Opcode1)
	assert.Equal(t, uint16(1), table[1].Opcode1)
	opc2 := []uint16{table[0].Opcode2, table[1].Opcode2}
	assert.ElementsMatch(t, []uint16{0x101, 0x201}, opc2)
}

func TestLookupArchFiltering(t *testing.T) {
	_, err := Lookup("flat_load_dword", ArchGCN10)
	var unavail *ArchUnavailableError
	require.ErrorAs(t, err, &unavail)

	ent, err := Lookup("flat_load_dword", ArchGCN11)
	require.NoError(t, err)
	assert.Equal(t, EncFLAT, ent.Encoding1)

	_, err = Lookup("no_such_instruction", ArchGCN10)
	var unknown *UnknownMnemonicError
	require.ErrorAs(t, err, &unknown)
}

func TestLookupSortedOrder(t *testing.T) {
	table := Table()
	for i := 1; i < len(table); i++ {
		require.LessOrEqual(t, table[i-1].Mnemonic, table[i].Mnemonic,
			"table must stay sorted for binary search")
	}
}

func TestHasMnemonic(t *testing.T) {
	assert.True(t, HasMnemonic("s_mov_b32"))
	assert.True(t, HasMnemonic("flat_load_dword"))
	assert.False(t, HasMnemonic("s_bogus"))
}
