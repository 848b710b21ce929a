package gcn

import (
	"sort"
	"sync"
)

// UnknownMnemonicError reports a lookup miss. It is a distinct type so the
// assembler driver can classify it without string matching.
type UnknownMnemonicError struct{ Mnemonic string }

func (e *UnknownMnemonicError) Error() string {
	return "unknown instruction mnemonic: " + e.Mnemonic
}

// ArchUnavailableError reports a mnemonic that exists in the table but not on
// the current architecture revision.
type ArchUnavailableError struct{ Mnemonic string }

func (e *ArchUnavailableError) Error() string {
	return "instruction not available on this architecture: " + e.Mnemonic
}

var (
	tableOnce   sync.Once
	sortedTable []Entry
)

// Table returns the process-wide sorted and fused instruction table,
// building it on first use.
func Table() []Entry {
	tableOnce.Do(func() {
		sortedTable = buildTable(instrTable)
	})
	return sortedTable
}

// buildTable sorts the raw rows by (mnemonic, encoding, archMask) and folds
// VOP3A/VOP3B rows into the second opcode slot of the compact row sharing
// their mnemonic and architecture. When the compact row's second slot is
// already taken, a duplicate row is appended carrying the same compact opcode
// and the new extended opcode. Exposed (unexported) for table-injection in
// tests of rare architectures.
func buildTable(raw []rawInstr) []Entry {
	entries := make([]Entry, len(raw))
	for i, r := range raw {
		entries[i] = Entry{
			Mnemonic:  r.mnemonic,
			Encoding1: r.encoding,
			Encoding2: EncNone,
			Mode:      r.mode,
			Opcode1:   r.opcode,
			Opcode2:   NoOpcode2,
			ArchMask:  r.archMask,
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := &entries[i], &entries[j]
		if a.Mnemonic != b.Mnemonic {
			return a.Mnemonic < b.Mnemonic
		}
		if a.Encoding1 != b.Encoding1 {
			return a.Encoding1 < b.Encoding1
		}
		return a.ArchMask < b.ArchMask
	})

	out := entries[:0:len(entries)]
	for _, insn := range entries {
		if insn.Encoding1 == EncVOP3A || insn.Encoding1 == EncVOP3B {
			// Find the compact row covering this row's architectures.
			k := -1
			for j := len(out) - 1; j >= 0 && out[j].Mnemonic == insn.Mnemonic; j-- {
				if out[j].ArchMask&insn.ArchMask == insn.ArchMask &&
					out[j].Encoding1 != EncVOP3A && out[j].Encoding1 != EncVOP3B {
					k = j
					break
				}
			}
			if k < 0 {
				out = append(out, insn) // VOP3-only mnemonic
				continue
			}
			if out[k].Opcode2 == NoOpcode2 {
				out[k].Opcode2 = insn.Opcode1
				out[k].Encoding2 = insn.Encoding1
				out[k].ArchMask &= insn.ArchMask
			} else {
				dup := out[k]
				dup.ArchMask &= insn.ArchMask
				dup.Encoding2 = insn.Encoding1
				dup.Opcode2 = insn.Opcode1
				out = append(out, dup)
			}
			continue
		}
		out = append(out, insn)
	}
	return out
}

// Lookup finds the table entry for mnemonic valid on the architecture bit
// archBit. The search is a binary search on mnemonic followed by a forward
// scan over equal-mnemonic rows skipping architecture mismatches.
func Lookup(mnemonic string, archBit uint32) (*Entry, error) {
	return lookupIn(Table(), mnemonic, archBit)
}

func lookupIn(table []Entry, mnemonic string, archBit uint32) (*Entry, error) {
	i := sort.Search(len(table), func(i int) bool {
		return table[i].Mnemonic >= mnemonic
	})
	if i == len(table) || table[i].Mnemonic != mnemonic {
		return nil, &UnknownMnemonicError{Mnemonic: mnemonic}
	}
	for ; i < len(table) && table[i].Mnemonic == mnemonic; i++ {
		if table[i].ArchMask&archBit != 0 {
			return &table[i], nil
		}
	}
	return nil, &ArchUnavailableError{Mnemonic: mnemonic}
}

// HasMnemonic reports whether mnemonic exists in the table on any
// architecture. The driver uses it to distinguish instruction lines from
// label/directive typos.
func HasMnemonic(mnemonic string) bool {
	table := Table()
	i := sort.Search(len(table), func(i int) bool {
		return table[i].Mnemonic >= mnemonic
	})
	return i < len(table) && table[i].Mnemonic == mnemonic
}
