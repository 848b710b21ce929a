package gcn

// raw instruction rows before the one-time sort+fusion pass. VOP3A rows that
// share a mnemonic with a compact VOP2/VOP1/VOPC row are folded into that
// row's second opcode slot at load time; the remaining rows stay as-is.
//
// Opcode values follow the unified numbering the assembler emits for every
// architecture revision; rows valid on a subset of revisions carry a
// narrower ArchMask.
type rawInstr struct {
	mnemonic string
	encoding EncKind
	mode     uint32
	opcode   uint16
	archMask uint32
}

var instrTable = []rawInstr{
	// SOP2
	{"s_add_u32", EncSOP2, ModeDefault, 0, ArchAll},
	{"s_sub_u32", EncSOP2, ModeDefault, 1, ArchAll},
	{"s_add_i32", EncSOP2, ModeDefault, 2, ArchAll},
	{"s_sub_i32", EncSOP2, ModeDefault, 3, ArchAll},
	{"s_addc_u32", EncSOP2, ModeDefault, 4, ArchAll},
	{"s_subb_u32", EncSOP2, ModeDefault, 5, ArchAll},
	{"s_min_i32", EncSOP2, ModeDefault, 6, ArchAll},
	{"s_min_u32", EncSOP2, ModeDefault, 7, ArchAll},
	{"s_max_i32", EncSOP2, ModeDefault, 8, ArchAll},
	{"s_max_u32", EncSOP2, ModeDefault, 9, ArchAll},
	{"s_cselect_b32", EncSOP2, ModeDefault, 10, ArchAll},
	{"s_cselect_b64", EncSOP2, ModeDst64 | ModeSrc064 | ModeSrc164, 11, ArchAll},
	{"s_and_b32", EncSOP2, ModeDefault, 14, ArchAll},
	{"s_and_b64", EncSOP2, ModeDst64 | ModeSrc064 | ModeSrc164, 15, ArchAll},
	{"s_or_b32", EncSOP2, ModeDefault, 16, ArchAll},
	{"s_or_b64", EncSOP2, ModeDst64 | ModeSrc064 | ModeSrc164, 17, ArchAll},
	{"s_xor_b32", EncSOP2, ModeDefault, 18, ArchAll},
	{"s_xor_b64", EncSOP2, ModeDst64 | ModeSrc064 | ModeSrc164, 19, ArchAll},
	{"s_andn2_b32", EncSOP2, ModeDefault, 20, ArchAll},
	{"s_andn2_b64", EncSOP2, ModeDst64 | ModeSrc064 | ModeSrc164, 21, ArchAll},
	{"s_orn2_b32", EncSOP2, ModeDefault, 22, ArchAll},
	{"s_orn2_b64", EncSOP2, ModeDst64 | ModeSrc064 | ModeSrc164, 23, ArchAll},
	{"s_nand_b32", EncSOP2, ModeDefault, 24, ArchAll},
	{"s_nand_b64", EncSOP2, ModeDst64 | ModeSrc064 | ModeSrc164, 25, ArchAll},
	{"s_nor_b32", EncSOP2, ModeDefault, 26, ArchAll},
	{"s_nor_b64", EncSOP2, ModeDst64 | ModeSrc064 | ModeSrc164, 27, ArchAll},
	{"s_xnor_b32", EncSOP2, ModeDefault, 28, ArchAll},
	{"s_xnor_b64", EncSOP2, ModeDst64 | ModeSrc064 | ModeSrc164, 29, ArchAll},
	{"s_lshl_b32", EncSOP2, ModeDefault, 30, ArchAll},
	{"s_lshl_b64", EncSOP2, ModeDst64 | ModeSrc064, 31, ArchAll},
	{"s_lshr_b32", EncSOP2, ModeDefault, 32, ArchAll},
	{"s_lshr_b64", EncSOP2, ModeDst64 | ModeSrc064, 33, ArchAll},
	{"s_ashr_i32", EncSOP2, ModeDefault, 34, ArchAll},
	{"s_ashr_i64", EncSOP2, ModeDst64 | ModeSrc064, 35, ArchAll},
	{"s_bfm_b32", EncSOP2, ModeDefault, 36, ArchAll},
	{"s_bfm_b64", EncSOP2, ModeDst64, 37, ArchAll},
	{"s_mul_i32", EncSOP2, ModeDefault, 38, ArchAll},
	{"s_bfe_u32", EncSOP2, ModeDefault, 39, ArchAll},
	{"s_bfe_i32", EncSOP2, ModeDefault, 40, ArchAll},
	{"s_bfe_u64", EncSOP2, ModeDst64 | ModeSrc064, 41, ArchAll},
	{"s_bfe_i64", EncSOP2, ModeDst64 | ModeSrc064, 42, ArchAll},
	{"s_absdiff_i32", EncSOP2, ModeDefault, 44, ArchAll},

	// SOP1
	{"s_mov_b32", EncSOP1, ModeDefault, 0, ArchAll},
	{"s_mov_b64", EncSOP1, ModeDst64 | ModeSrc064, 1, ArchAll},
	{"s_cmov_b32", EncSOP1, ModeDefault, 2, ArchAll},
	{"s_cmov_b64", EncSOP1, ModeDst64 | ModeSrc064, 3, ArchAll},
	{"s_not_b32", EncSOP1, ModeDefault, 4, ArchAll},
	{"s_not_b64", EncSOP1, ModeDst64 | ModeSrc064, 5, ArchAll},
	{"s_wqm_b32", EncSOP1, ModeDefault, 6, ArchAll},
	{"s_wqm_b64", EncSOP1, ModeDst64 | ModeSrc064, 7, ArchAll},
	{"s_brev_b32", EncSOP1, ModeDefault, 8, ArchAll},
	{"s_brev_b64", EncSOP1, ModeDst64 | ModeSrc064, 9, ArchAll},
	{"s_bcnt0_i32_b32", EncSOP1, ModeDefault, 10, ArchAll},
	{"s_bcnt0_i32_b64", EncSOP1, ModeSrc064, 11, ArchAll},
	{"s_bcnt1_i32_b32", EncSOP1, ModeDefault, 12, ArchAll},
	{"s_bcnt1_i32_b64", EncSOP1, ModeSrc064, 13, ArchAll},
	{"s_ff0_i32_b32", EncSOP1, ModeDefault, 14, ArchAll},
	{"s_ff0_i32_b64", EncSOP1, ModeSrc064, 15, ArchAll},
	{"s_ff1_i32_b32", EncSOP1, ModeDefault, 16, ArchAll},
	{"s_ff1_i32_b64", EncSOP1, ModeSrc064, 17, ArchAll},
	{"s_flbit_i32_b32", EncSOP1, ModeDefault, 18, ArchAll},
	{"s_flbit_i32_b64", EncSOP1, ModeSrc064, 19, ArchAll},
	{"s_sext_i32_i8", EncSOP1, ModeDefault, 24, ArchAll},
	{"s_sext_i32_i16", EncSOP1, ModeDefault, 25, ArchAll},
	{"s_bitset0_b32", EncSOP1, ModeDefault, 26, ArchAll},
	{"s_bitset0_b64", EncSOP1, ModeDst64, 27, ArchAll},
	{"s_bitset1_b32", EncSOP1, ModeDefault, 28, ArchAll},
	{"s_bitset1_b64", EncSOP1, ModeDst64, 29, ArchAll},
	{"s_getpc_b64", EncSOP1, ModeDst64 | ModeNoSrc, 30, ArchAll},
	{"s_setpc_b64", EncSOP1, ModeSrc064 | ModeNoDst, 31, ArchAll},
	{"s_swappc_b64", EncSOP1, ModeDst64 | ModeSrc064, 32, ArchAll},
	{"s_rfe_b64", EncSOP1, ModeSrc064 | ModeNoDst, 33, ArchAll},
	{"s_abs_i32", EncSOP1, ModeDefault, 48, ArchAll},

	// SOPK
	{"s_movk_i32", EncSOPK, ModeDefault, 0, ArchAll},
	{"s_cmovk_i32", EncSOPK, ModeDefault, 1, ArchAll},
	{"s_cmpk_eq_i32", EncSOPK, ModeDefault, 2, ArchAll},
	{"s_cmpk_lg_i32", EncSOPK, ModeDefault, 3, ArchAll},
	{"s_cmpk_gt_i32", EncSOPK, ModeDefault, 4, ArchAll},
	{"s_cmpk_ge_i32", EncSOPK, ModeDefault, 5, ArchAll},
	{"s_cmpk_lt_i32", EncSOPK, ModeDefault, 6, ArchAll},
	{"s_cmpk_le_i32", EncSOPK, ModeDefault, 7, ArchAll},
	{"s_cmpk_eq_u32", EncSOPK, ModeDefault, 8, ArchAll},
	{"s_cmpk_lg_u32", EncSOPK, ModeDefault, 9, ArchAll},
	{"s_cmpk_gt_u32", EncSOPK, ModeDefault, 10, ArchAll},
	{"s_cmpk_ge_u32", EncSOPK, ModeDefault, 11, ArchAll},
	{"s_cmpk_lt_u32", EncSOPK, ModeDefault, 12, ArchAll},
	{"s_cmpk_le_u32", EncSOPK, ModeDefault, 13, ArchAll},
	{"s_addk_i32", EncSOPK, ModeDefault, 14, ArchAll},
	{"s_mulk_i32", EncSOPK, ModeDefault, 15, ArchAll},
	{"s_getreg_b32", EncSOPK, ModeDefault, 17, ArchAll},
	{"s_setreg_b32", EncSOPK, ModeDefault, 18, ArchAll},

	// SOPC
	{"s_cmp_eq_i32", EncSOPC, ModeDefault, 0, ArchAll},
	{"s_cmp_lg_i32", EncSOPC, ModeDefault, 1, ArchAll},
	{"s_cmp_gt_i32", EncSOPC, ModeDefault, 2, ArchAll},
	{"s_cmp_ge_i32", EncSOPC, ModeDefault, 3, ArchAll},
	{"s_cmp_lt_i32", EncSOPC, ModeDefault, 4, ArchAll},
	{"s_cmp_le_i32", EncSOPC, ModeDefault, 5, ArchAll},
	{"s_cmp_eq_u32", EncSOPC, ModeDefault, 6, ArchAll},
	{"s_cmp_lg_u32", EncSOPC, ModeDefault, 7, ArchAll},
	{"s_cmp_gt_u32", EncSOPC, ModeDefault, 8, ArchAll},
	{"s_cmp_ge_u32", EncSOPC, ModeDefault, 9, ArchAll},
	{"s_cmp_lt_u32", EncSOPC, ModeDefault, 10, ArchAll},
	{"s_cmp_le_u32", EncSOPC, ModeDefault, 11, ArchAll},
	{"s_bitcmp0_b32", EncSOPC, ModeDefault, 12, ArchAll},
	{"s_bitcmp1_b32", EncSOPC, ModeDefault, 13, ArchAll},
	{"s_bitcmp0_b64", EncSOPC, ModeSrc064, 14, ArchAll},
	{"s_bitcmp1_b64", EncSOPC, ModeSrc064, 15, ArchAll},
	{"s_setvskip", EncSOPC, ModeDefault, 16, ArchAll},

	// SOPP
	{"s_nop", EncSOPP, ModeDefault, 0, ArchAll},
	{"s_endpgm", EncSOPP, ModeImmNone, 1, ArchAll},
	{"s_branch", EncSOPP, ModeImmRel, 2, ArchAll},
	{"s_cbranch_scc0", EncSOPP, ModeImmRel, 4, ArchAll},
	{"s_cbranch_scc1", EncSOPP, ModeImmRel, 5, ArchAll},
	{"s_cbranch_vccz", EncSOPP, ModeImmRel, 6, ArchAll},
	{"s_cbranch_vccnz", EncSOPP, ModeImmRel, 7, ArchAll},
	{"s_cbranch_execz", EncSOPP, ModeImmRel, 8, ArchAll},
	{"s_cbranch_execnz", EncSOPP, ModeImmRel, 9, ArchAll},
	{"s_barrier", EncSOPP, ModeImmNone, 10, ArchAll},
	{"s_setkill", EncSOPP, ModeDefault, 11, ArchGCN12},
	{"s_waitcnt", EncSOPP, ModeDefault, 12, ArchAll},
	{"s_sethalt", EncSOPP, ModeDefault, 13, ArchAll},
	{"s_sleep", EncSOPP, ModeDefault, 14, ArchAll},
	{"s_setprio", EncSOPP, ModeDefault, 15, ArchAll},
	{"s_sendmsg", EncSOPP, ModeDefault, 16, ArchAll},
	{"s_sendmsghalt", EncSOPP, ModeDefault, 17, ArchAll},
	{"s_trap", EncSOPP, ModeDefault, 18, ArchAll},
	{"s_icache_inv", EncSOPP, ModeImmNone, 19, ArchAll},
	{"s_incperflevel", EncSOPP, ModeDefault, 20, ArchAll},
	{"s_decperflevel", EncSOPP, ModeDefault, 21, ArchAll},
	{"s_ttracedata", EncSOPP, ModeImmNone, 22, ArchAll},
	{"s_cbranch_cdbgsys", EncSOPP, ModeImmRel, 23, ArchGCN11Up},
	{"s_cbranch_cdbguser", EncSOPP, ModeImmRel, 24, ArchGCN11Up},

	// SMRD (replaced by SMEM from GCN 1.2 on; the table gates it out there)
	{"s_load_dword", EncSMRD, ModeSMRDImm, 0, ArchGCN10 | ArchGCN11},
	{"s_load_dwordx2", EncSMRD, ModeSMRDImm | ModeSMRDDst64, 1, ArchGCN10 | ArchGCN11},
	{"s_load_dwordx4", EncSMRD, ModeSMRDImm | ModeSMRDDstX4, 2, ArchGCN10 | ArchGCN11},
	{"s_load_dwordx8", EncSMRD, ModeSMRDImm | ModeSMRDDstX8, 3, ArchGCN10 | ArchGCN11},
	{"s_load_dwordx16", EncSMRD, ModeSMRDImm | ModeSMRDDstX16, 4, ArchGCN10 | ArchGCN11},
	{"s_buffer_load_dword", EncSMRD, ModeSMRDImm, 8, ArchGCN10 | ArchGCN11},
	{"s_buffer_load_dwordx2", EncSMRD, ModeSMRDImm | ModeSMRDDst64, 9, ArchGCN10 | ArchGCN11},
	{"s_buffer_load_dwordx4", EncSMRD, ModeSMRDImm | ModeSMRDDstX4, 10, ArchGCN10 | ArchGCN11},
	{"s_memtime", EncSMRD, ModeSMRDNoArgs | ModeSMRDDst64, 30, ArchGCN10 | ArchGCN11},
	{"s_dcache_inv", EncSMRD, ModeSMRDNoArgs | ModeNoDst, 31, ArchGCN10 | ArchGCN11},

	// VOP2 compact rows ...
	{"v_cndmask_b32", EncVOP2, ModeDefault, 0, ArchAll},
	{"v_add_f32", EncVOP2, ModeDefault, 3, ArchAll},
	{"v_sub_f32", EncVOP2, ModeDefault, 4, ArchAll},
	{"v_subrev_f32", EncVOP2, ModeDefault, 5, ArchAll},
	{"v_mul_legacy_f32", EncVOP2, ModeDefault, 7, ArchAll},
	{"v_mul_f32", EncVOP2, ModeDefault, 8, ArchAll},
	{"v_mul_i32_i24", EncVOP2, ModeFInt, 9, ArchAll},
	{"v_mul_u32_u24", EncVOP2, ModeFInt, 11, ArchAll},
	{"v_min_f32", EncVOP2, ModeDefault, 15, ArchAll},
	{"v_max_f32", EncVOP2, ModeDefault, 16, ArchAll},
	{"v_min_i32", EncVOP2, ModeFInt, 17, ArchAll},
	{"v_max_i32", EncVOP2, ModeFInt, 18, ArchAll},
	{"v_min_u32", EncVOP2, ModeFInt, 19, ArchAll},
	{"v_max_u32", EncVOP2, ModeFInt, 20, ArchAll},
	{"v_lshrrev_b32", EncVOP2, ModeFInt, 22, ArchAll},
	{"v_ashrrev_i32", EncVOP2, ModeFInt, 24, ArchAll},
	{"v_lshlrev_b32", EncVOP2, ModeFInt, 26, ArchAll},
	{"v_and_b32", EncVOP2, ModeFInt, 27, ArchAll},
	{"v_or_b32", EncVOP2, ModeFInt, 28, ArchAll},
	{"v_xor_b32", EncVOP2, ModeFInt, 29, ArchAll},
	{"v_mac_f32", EncVOP2, ModeDefault, 31, ArchAll},
	{"v_add_i32", EncVOP2, ModeFInt | ModeVOPSDst, 37, ArchAll},
	{"v_sub_i32", EncVOP2, ModeFInt | ModeVOPSDst, 38, ArchAll},
	{"v_subrev_i32", EncVOP2, ModeFInt | ModeVOPSDst, 39, ArchAll},

	// ... and their VOP3A/VOP3B extended forms, fused at load time
	{"v_cndmask_b32", EncVOP3A, ModeDefault, 0x100, ArchAll},
	{"v_add_f32", EncVOP3A, ModeDefault, 0x103, ArchAll},
	{"v_sub_f32", EncVOP3A, ModeDefault, 0x104, ArchAll},
	{"v_subrev_f32", EncVOP3A, ModeDefault, 0x105, ArchAll},
	{"v_mul_legacy_f32", EncVOP3A, ModeDefault, 0x107, ArchAll},
	{"v_mul_f32", EncVOP3A, ModeDefault, 0x108, ArchAll},
	{"v_mul_i32_i24", EncVOP3A, ModeFInt, 0x109, ArchAll},
	{"v_mul_u32_u24", EncVOP3A, ModeFInt, 0x10B, ArchAll},
	{"v_min_f32", EncVOP3A, ModeDefault, 0x10F, ArchAll},
	{"v_max_f32", EncVOP3A, ModeDefault, 0x110, ArchAll},
	{"v_min_i32", EncVOP3A, ModeFInt, 0x111, ArchAll},
	{"v_max_i32", EncVOP3A, ModeFInt, 0x112, ArchAll},
	{"v_min_u32", EncVOP3A, ModeFInt, 0x113, ArchAll},
	{"v_max_u32", EncVOP3A, ModeFInt, 0x114, ArchAll},
	{"v_lshrrev_b32", EncVOP3A, ModeFInt, 0x116, ArchAll},
	{"v_ashrrev_i32", EncVOP3A, ModeFInt, 0x118, ArchAll},
	{"v_lshlrev_b32", EncVOP3A, ModeFInt, 0x11A, ArchAll},
	{"v_and_b32", EncVOP3A, ModeFInt, 0x11B, ArchAll},
	{"v_or_b32", EncVOP3A, ModeFInt, 0x11C, ArchAll},
	{"v_xor_b32", EncVOP3A, ModeFInt, 0x11D, ArchAll},
	{"v_mac_f32", EncVOP3A, ModeDefault, 0x11F, ArchAll},
	{"v_add_i32", EncVOP3B, ModeFInt | ModeVOPSDst, 0x125, ArchAll},
	{"v_sub_i32", EncVOP3B, ModeFInt | ModeVOPSDst, 0x126, ArchAll},
	{"v_subrev_i32", EncVOP3B, ModeFInt | ModeVOPSDst, 0x127, ArchAll},

	// VOP1 compact rows
	{"v_nop", EncVOP1, ModeNoDst | ModeNoSrc, 0, ArchAll},
	{"v_mov_b32", EncVOP1, ModeFInt, 1, ArchAll},
	{"v_cvt_f32_i32", EncVOP1, ModeFInt, 5, ArchAll},
	{"v_cvt_f32_u32", EncVOP1, ModeFInt, 6, ArchAll},
	{"v_cvt_u32_f32", EncVOP1, ModeDefault, 7, ArchAll},
	{"v_cvt_i32_f32", EncVOP1, ModeDefault, 8, ArchAll},
	{"v_cvt_f16_f32", EncVOP1, ModeDefault, 10, ArchAll},
	{"v_cvt_f32_f16", EncVOP1, ModeF16, 11, ArchAll},
	{"v_fract_f32", EncVOP1, ModeDefault, 32, ArchAll},
	{"v_trunc_f32", EncVOP1, ModeDefault, 33, ArchAll},
	{"v_ceil_f32", EncVOP1, ModeDefault, 34, ArchAll},
	{"v_rndne_f32", EncVOP1, ModeDefault, 35, ArchAll},
	{"v_floor_f32", EncVOP1, ModeDefault, 36, ArchAll},
	{"v_exp_f32", EncVOP1, ModeDefault, 37, ArchAll},
	{"v_log_f32", EncVOP1, ModeDefault, 39, ArchAll},
	{"v_rcp_f32", EncVOP1, ModeDefault, 42, ArchAll},
	{"v_rsq_f32", EncVOP1, ModeDefault, 46, ArchAll},
	{"v_sqrt_f32", EncVOP1, ModeDefault, 51, ArchAll},
	{"v_sin_f32", EncVOP1, ModeDefault, 53, ArchAll},
	{"v_cos_f32", EncVOP1, ModeDefault, 54, ArchAll},
	{"v_not_b32", EncVOP1, ModeFInt, 55, ArchAll},
	{"v_bfrev_b32", EncVOP1, ModeFInt, 56, ArchAll},
	{"v_ffbh_u32", EncVOP1, ModeFInt, 57, ArchAll},
	{"v_ffbl_b32", EncVOP1, ModeFInt, 58, ArchAll},

	// VOP1 extended forms
	{"v_mov_b32", EncVOP3A, ModeFInt, 0x181, ArchAll},
	{"v_cvt_f32_i32", EncVOP3A, ModeFInt, 0x185, ArchAll},
	{"v_cvt_f32_u32", EncVOP3A, ModeFInt, 0x186, ArchAll},
	{"v_cvt_u32_f32", EncVOP3A, ModeDefault, 0x187, ArchAll},
	{"v_cvt_i32_f32", EncVOP3A, ModeDefault, 0x188, ArchAll},
	{"v_fract_f32", EncVOP3A, ModeDefault, 0x1A0, ArchAll},
	{"v_trunc_f32", EncVOP3A, ModeDefault, 0x1A1, ArchAll},
	{"v_ceil_f32", EncVOP3A, ModeDefault, 0x1A2, ArchAll},
	{"v_floor_f32", EncVOP3A, ModeDefault, 0x1A4, ArchAll},
	{"v_rcp_f32", EncVOP3A, ModeDefault, 0x1AA, ArchAll},
	{"v_sqrt_f32", EncVOP3A, ModeDefault, 0x1B3, ArchAll},
	{"v_not_b32", EncVOP3A, ModeFInt, 0x1B7, ArchAll},

	// VOPC compact rows (float then integer compares)
	{"v_cmp_f_f32", EncVOPC, ModeDefault, 0, ArchAll},
	{"v_cmp_lt_f32", EncVOPC, ModeDefault, 1, ArchAll},
	{"v_cmp_eq_f32", EncVOPC, ModeDefault, 2, ArchAll},
	{"v_cmp_le_f32", EncVOPC, ModeDefault, 3, ArchAll},
	{"v_cmp_gt_f32", EncVOPC, ModeDefault, 4, ArchAll},
	{"v_cmp_lg_f32", EncVOPC, ModeDefault, 5, ArchAll},
	{"v_cmp_ge_f32", EncVOPC, ModeDefault, 6, ArchAll},
	{"v_cmp_nge_f32", EncVOPC, ModeDefault, 9, ArchAll},
	{"v_cmp_nlg_f32", EncVOPC, ModeDefault, 10, ArchAll},
	{"v_cmp_ngt_f32", EncVOPC, ModeDefault, 11, ArchAll},
	{"v_cmp_nle_f32", EncVOPC, ModeDefault, 12, ArchAll},
	{"v_cmp_neq_f32", EncVOPC, ModeDefault, 13, ArchAll},
	{"v_cmp_nlt_f32", EncVOPC, ModeDefault, 14, ArchAll},
	{"v_cmp_tru_f32", EncVOPC, ModeDefault, 15, ArchAll},
	{"v_cmp_f_i32", EncVOPC, ModeFInt, 0x80, ArchAll},
	{"v_cmp_lt_i32", EncVOPC, ModeFInt, 0x81, ArchAll},
	{"v_cmp_eq_i32", EncVOPC, ModeFInt, 0x82, ArchAll},
	{"v_cmp_le_i32", EncVOPC, ModeFInt, 0x83, ArchAll},
	{"v_cmp_gt_i32", EncVOPC, ModeFInt, 0x84, ArchAll},
	{"v_cmp_ne_i32", EncVOPC, ModeFInt, 0x85, ArchAll},
	{"v_cmp_ge_i32", EncVOPC, ModeFInt, 0x86, ArchAll},
	{"v_cmp_t_i32", EncVOPC, ModeFInt, 0x87, ArchAll},

	// VOPC extended forms
	{"v_cmp_lt_f32", EncVOP3A, ModeDefault, 0x01, ArchAll},
	{"v_cmp_eq_f32", EncVOP3A, ModeDefault, 0x02, ArchAll},
	{"v_cmp_gt_f32", EncVOP3A, ModeDefault, 0x04, ArchAll},
	{"v_cmp_lt_i32", EncVOP3A, ModeFInt, 0x81, ArchAll},
	{"v_cmp_eq_i32", EncVOP3A, ModeFInt, 0x82, ArchAll},
	{"v_cmp_gt_i32", EncVOP3A, ModeFInt, 0x84, ArchAll},

	// VOP3A-only three-source rows
	{"v_mad_legacy_f32", EncVOP3A, ModeSrc2, 0x140, ArchAll},
	{"v_mad_f32", EncVOP3A, ModeSrc2, 0x141, ArchAll},
	{"v_mad_i32_i24", EncVOP3A, ModeSrc2 | ModeFInt, 0x142, ArchAll},
	{"v_mad_u32_u24", EncVOP3A, ModeSrc2 | ModeFInt, 0x143, ArchAll},
	{"v_bfe_u32", EncVOP3A, ModeSrc2 | ModeFInt, 0x148, ArchAll},
	{"v_bfe_i32", EncVOP3A, ModeSrc2 | ModeFInt, 0x149, ArchAll},
	{"v_bfi_b32", EncVOP3A, ModeSrc2 | ModeFInt, 0x14A, ArchAll},
	{"v_fma_f32", EncVOP3A, ModeSrc2, 0x14B, ArchAll},
	{"v_alignbit_b32", EncVOP3A, ModeSrc2 | ModeFInt, 0x14E, ArchAll},
	{"v_min3_f32", EncVOP3A, ModeSrc2, 0x151, ArchAll},
	{"v_max3_f32", EncVOP3A, ModeSrc2, 0x154, ArchAll},
	{"v_med3_f32", EncVOP3A, ModeSrc2, 0x157, ArchAll},
	{"v_mul_lo_u32", EncVOP3A, ModeFInt, 0x169, ArchAll},
	{"v_mul_hi_u32", EncVOP3A, ModeFInt, 0x16A, ArchAll},
	{"v_mul_lo_i32", EncVOP3A, ModeFInt, 0x16B, ArchAll},
	{"v_mul_hi_i32", EncVOP3A, ModeFInt, 0x16C, ArchAll},

	// VINTRP
	{"v_interp_p1_f32", EncVINTRP, ModeDefault, 0, ArchAll},
	{"v_interp_p2_f32", EncVINTRP, ModeDefault, 1, ArchAll},
	{"v_interp_mov_f32", EncVINTRP, ModeDefault, 2, ArchAll},

	// DS
	{"ds_add_u32", EncDS, ModeDSStore, 0, ArchAll},
	{"ds_sub_u32", EncDS, ModeDSStore, 1, ArchAll},
	{"ds_min_i32", EncDS, ModeDSStore, 5, ArchAll},
	{"ds_max_i32", EncDS, ModeDSStore, 6, ArchAll},
	{"ds_write_b32", EncDS, ModeDSStore, 13, ArchAll},
	{"ds_write_b64", EncDS, ModeDSStore | ModeDS64, 77, ArchAll},
	{"ds_read_b32", EncDS, ModeDSLoad, 54, ArchAll},
	{"ds_read_b64", EncDS, ModeDSLoad | ModeDS64, 118, ArchAll},

	// MUBUF / MTBUF / MIMG
	{"buffer_load_format_x", EncMUBUF, ModeDefault, 0, ArchAll},
	{"buffer_load_dword", EncMUBUF, ModeDefault, 12, ArchAll},
	{"buffer_load_dwordx2", EncMUBUF, ModeFLATX2, 13, ArchAll},
	{"buffer_load_dwordx4", EncMUBUF, ModeFLATX4, 14, ArchAll},
	{"buffer_store_dword", EncMUBUF, ModeDSStore, 28, ArchAll},
	{"buffer_store_dwordx2", EncMUBUF, ModeDSStore | ModeFLATX2, 29, ArchAll},
	{"buffer_store_dwordx4", EncMUBUF, ModeDSStore | ModeFLATX4, 30, ArchAll},
	{"tbuffer_load_format_x", EncMTBUF, ModeDefault, 0, ArchAll},
	{"tbuffer_store_format_x", EncMTBUF, ModeDSStore, 4, ArchAll},
	{"image_load", EncMIMG, ModeDefault, 0, ArchAll},
	{"image_store", EncMIMG, ModeDSStore, 8, ArchAll},
	{"image_sample", EncMIMG, ModeDefault, 32, ArchAll},

	// EXP
	{"exp", EncEXP, ModeDefault, 0, ArchAll},

	// FLAT (no flat addressing on GCN 1.0)
	{"flat_load_dword", EncFLAT, ModeFLATLoad, 12, ArchGCN11Up},
	{"flat_load_dwordx2", EncFLAT, ModeFLATLoad | ModeFLATX2, 13, ArchGCN11Up},
	{"flat_load_dwordx4", EncFLAT, ModeFLATLoad | ModeFLATX4, 14, ArchGCN11Up},
	{"flat_store_dword", EncFLAT, ModeDefault, 28, ArchGCN11Up},
	{"flat_store_dwordx2", EncFLAT, ModeFLATX2, 29, ArchGCN11Up},
	{"flat_store_dwordx4", EncFLAT, ModeFLATX4, 30, ArchGCN11Up},
}
