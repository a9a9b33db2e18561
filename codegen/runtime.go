package codegen

import (
	"sort"
	"strings"
)

// Buffer is a data-area reservation owned by a runtime routine
type Buffer struct {
	Name string
	Size int
}

// Routine is one entry of the runtime library catalog: a named snippet
// of Z80 code, the entries it calls and the buffers it owns. Only
// routines reachable from recorded call sites are emitted, in dependency
// order with ties broken by name.
type Routine struct {
	Name    string
	Deps    []string
	Buffers []Buffer
	Body    string
}

// closure computes the reachable routine set from the recorded call
// sites and returns it leaves-first in a stable topological order.
func (g *Generator) closure() []string {
	reachable := make(map[string]bool)

	var visit func(name string)
	visit = func(name string) {
		if reachable[name] {
			return
		}
		reachable[name] = true
		for _, dep := range routines[name].Deps {
			visit(dep)
		}
	}
	for _, name := range g.usedOrder {
		visit(name)
	}

	// Kahn's algorithm over the reachable set, always taking the
	// lexicographically smallest ready entry
	pending := make(map[string]int, len(reachable))
	for name := range reachable {
		n := 0
		for _, dep := range routines[name].Deps {
			if reachable[dep] {
				n++
			}
		}
		pending[name] = n
	}

	var order []string
	for len(order) < len(reachable) {
		var ready []string
		for name, n := range pending {
			if n == 0 {
				ready = append(ready, name)
			}
		}
		sort.Strings(ready)
		if len(ready) == 0 {
			// Dependency cycle; emit the rest by name to stay deterministic
			for name := range pending {
				ready = append(ready, name)
			}
			sort.Strings(ready)
			order = append(order, ready...)
			break
		}
		next := ready[0]
		order = append(order, next)
		delete(pending, next)
		for name := range pending {
			for _, dep := range routines[name].Deps {
				if dep == next {
					pending[name]--
				}
			}
		}
	}

	return order
}

// libraryArea emits the referenced routines
func (g *Generator) libraryArea() string {
	var sb strings.Builder
	for _, name := range g.closure() {
		sb.WriteString(routines[name].Body)
	}
	return sb.String()
}

// routines is the fixed catalog. Bodies are verbatim assembly text;
// every label inside a body is prefixed with the routine name so entries
// stay independent. Firmware entries are referenced as bare hex
// literals per CPC convention: &BB5A TXT_OUTPUT, &BB06 KM_WAIT_CHAR,
// &BB09 KM_READ_CHAR, &BB78 TXT_GET_CURSOR.
var routines = map[string]Routine{

	// ------------------------------------------------------------------
	// 16-bit integer helpers

	"intlib_neg": {
		Name: "intlib_neg",
		Body: `intlib_neg:
	xor a
	sub l
	ld l,a
	sbc a,a
	sub h
	ld h,a
	ret
`,
	},

	"intlib_abs": {
		Name: "intlib_abs",
		Deps: []string{"intlib_neg"},
		Body: `intlib_abs:
	bit 7,h
	ret z
	jp intlib_neg
`,
	},

	// Signed compare of HL against DE: A = &FF below, 0 equal, 1 above
	"intlib_cmp": {
		Name: "intlib_cmp",
		Body: `intlib_cmp:
	ld a,h
	xor d
	jp m,intlib_cmp_sgn
	or a
	sbc hl,de
	jr z,intlib_cmp_eq
	jp m,intlib_cmp_lt
	ld a,1
	ret
intlib_cmp_eq:
	xor a
	ret
intlib_cmp_lt:
	ld a,&FF
	ret
intlib_cmp_sgn:
	bit 7,h
	jr nz,intlib_cmp_lt
	ld a,1
	ret
`,
	},

	// ------------------------------------------------------------------
	// Comparison materializers: turn the A convention of the _cmp
	// routines into the BASIC truth values 0 / -1 in HL

	"cmplib_eq": {
		Name: "cmplib_eq",
		Body: `cmplib_eq:
	or a
	jr z,cmplib_eq_t
	ld hl,0
	ret
cmplib_eq_t:
	ld hl,&FFFF
	ret
`,
	},

	"cmplib_ne": {
		Name: "cmplib_ne",
		Body: `cmplib_ne:
	or a
	jr nz,cmplib_ne_t
	ld hl,0
	ret
cmplib_ne_t:
	ld hl,&FFFF
	ret
`,
	},

	"cmplib_lt": {
		Name: "cmplib_lt",
		Body: `cmplib_lt:
	cp &FF
	jr z,cmplib_lt_t
	ld hl,0
	ret
cmplib_lt_t:
	ld hl,&FFFF
	ret
`,
	},

	"cmplib_le": {
		Name: "cmplib_le",
		Body: `cmplib_le:
	cp 1
	jr z,cmplib_le_f
	ld hl,&FFFF
	ret
cmplib_le_f:
	ld hl,0
	ret
`,
	},

	"cmplib_gt": {
		Name: "cmplib_gt",
		Body: `cmplib_gt:
	cp 1
	jr z,cmplib_gt_t
	ld hl,0
	ret
cmplib_gt_t:
	ld hl,&FFFF
	ret
`,
	},

	"cmplib_ge": {
		Name: "cmplib_ge",
		Body: `cmplib_ge:
	cp &FF
	jr z,cmplib_ge_f
	ld hl,&FFFF
	ret
cmplib_ge_f:
	ld hl,0
	ret
`,
	},

	// ------------------------------------------------------------------
	// 16-bit multiply, divide, modulo, power

	"mathlib_mul16": {
		Name: "mathlib_mul16",
		Body: `mathlib_mul16:
	ld b,h
	ld c,l
	ld hl,0
	ld a,16
mathlib_mul16_loop:
	add hl,hl
	ex de,hl
	add hl,hl
	ex de,hl
	jr nc,mathlib_mul16_skip
	add hl,bc
mathlib_mul16_skip:
	dec a
	jr nz,mathlib_mul16_loop
	ret
`,
	},

	// Unsigned HL / DE: quotient in HL, remainder in DE
	"mathlib_udiv16": {
		Name: "mathlib_udiv16",
		Body: `mathlib_udiv16:
	ld b,h
	ld c,l
	ld hl,0
	ld a,16
mathlib_udiv16_loop:
	sla c
	rl b
	adc hl,hl
	jr c,mathlib_udiv16_force
	sbc hl,de
	jr nc,mathlib_udiv16_ok
	add hl,de
	jr mathlib_udiv16_next
mathlib_udiv16_force:
	or a
	sbc hl,de
mathlib_udiv16_ok:
	inc c
mathlib_udiv16_next:
	dec a
	jr nz,mathlib_udiv16_loop
	push hl
	ld h,b
	ld l,c
	pop de
	ret
`,
	},

	// Signed HL / DE with truncation toward zero
	"mathlib_div16": {
		Name: "mathlib_div16",
		Deps: []string{"intlib_abs", "intlib_neg", "mathlib_udiv16"},
		Body: `mathlib_div16:
	ld a,h
	xor d
	push af
	call intlib_abs
	ex de,hl
	call intlib_abs
	ex de,hl
	call mathlib_udiv16
	pop af
	ret p
	jp intlib_neg
`,
	},

	// Signed HL MOD DE; the remainder keeps the dividend's sign
	"mathlib_mod16": {
		Name: "mathlib_mod16",
		Deps: []string{"intlib_abs", "intlib_neg", "mathlib_udiv16"},
		Body: `mathlib_mod16:
	ld a,h
	push af
	call intlib_abs
	ex de,hl
	call intlib_abs
	ex de,hl
	call mathlib_udiv16
	ex de,hl
	pop af
	or a
	ret p
	jp intlib_neg
`,
	},

	// HL raised to DE; a negative exponent truncates to zero
	"mathlib_pow16": {
		Name: "mathlib_pow16",
		Deps: []string{"mathlib_mul16"},
		Body: `mathlib_pow16:
	bit 7,d
	jr z,mathlib_pow16_nn
	ld hl,0
	ret
mathlib_pow16_nn:
	ld b,h
	ld c,l
	ld hl,1
	ld a,d
	or e
	ret z
mathlib_pow16_loop:
	push de
	push bc
	ld d,b
	ld e,c
	call mathlib_mul16
	pop bc
	pop de
	dec de
	ld a,d
	or e
	jr nz,mathlib_pow16_loop
	ret
`,
	},

	// Unsigned HL / 10: quotient in HL, remainder in A
	"div16_hlby10": {
		Name: "div16_hlby10",
		Deps: []string{"mathlib_udiv16"},
		Body: `div16_hlby10:
	ld de,10
	call mathlib_udiv16
	ld a,e
	ret
`,
	},

	// ------------------------------------------------------------------
	// String routines. Strings are NUL terminated.

	// Signed integer in HL to decimal ASCII; returns HL = num_buf
	"strlib_int2str": {
		Name:    "strlib_int2str",
		Deps:    []string{"div16_hlby10", "intlib_neg"},
		Buffers: []Buffer{{Name: "num_buf", Size: 8}},
		Body: `strlib_int2str:
	ld de,num_buf
	bit 7,h
	jr z,strlib_int2str_pos
	ld a,'-'
	ld (de),a
	inc de
	call intlib_neg
strlib_int2str_pos:
	ld b,0
strlib_int2str_div:
	push de
	push bc
	call div16_hlby10
	pop bc
	pop de
	add a,'0'
	push af
	inc b
	ld a,h
	or l
	jr nz,strlib_int2str_div
strlib_int2str_out:
	pop af
	ld (de),a
	inc de
	djnz strlib_int2str_out
	xor a
	ld (de),a
	ld hl,num_buf
	ret
`,
	},

	// Print the NUL-terminated string at HL through the firmware
	"strlib_print_str": {
		Name: "strlib_print_str",
		Body: `strlib_print_str:
	ld a,(hl)
	or a
	ret z
	call &BB5A
	inc hl
	jr strlib_print_str
`,
	},

	"strlib_print_int": {
		Name: "strlib_print_int",
		Deps: []string{"strlib_int2str", "strlib_print_str"},
		Body: `strlib_print_int:
	call strlib_int2str
	jp strlib_print_str
`,
	},

	"strlib_print_nl": {
		Name: "strlib_print_nl",
		Body: `strlib_print_nl:
	ld a,13
	call &BB5A
	ld a,10
	jp &BB5A
`,
	},

	// Advance the cursor to the next 13-column print zone
	"strlib_print_zone": {
		Name: "strlib_print_zone",
		Body: `strlib_print_zone:
	call &BB78
	ld a,h
	dec a
strlib_print_zone_mod:
	sub 13
	jr nc,strlib_print_zone_mod
	neg
	ld b,a
strlib_print_zone_sp:
	ld a,' '
	call &BB5A
	djnz strlib_print_zone_sp
	ret
`,
	},

	// Copy the string at HL to the buffer at DE
	"strlib_copy": {
		Name: "strlib_copy",
		Body: `strlib_copy:
	ld a,(hl)
	ld (de),a
	or a
	ret z
	inc hl
	inc de
	jr strlib_copy
`,
	},

	// Length of the string at HL, returned in HL
	"strlib_len": {
		Name: "strlib_len",
		Body: `strlib_len:
	ld bc,0
strlib_len_loop:
	ld a,(hl)
	or a
	jr z,strlib_len_done
	inc hl
	inc bc
	jr strlib_len_loop
strlib_len_done:
	ld h,b
	ld l,c
	ret
`,
	},

	// Byte compare of the string at HL against the string at DE:
	// A = &FF below, 0 equal, 1 above
	"strlib_cmp": {
		Name: "strlib_cmp",
		Body: `strlib_cmp:
	ld a,(de)
	ld b,a
	ld a,(hl)
	cp b
	jr c,strlib_cmp_lt
	jr nz,strlib_cmp_gt
	or a
	jr z,strlib_cmp_eq
	inc hl
	inc de
	jr strlib_cmp
strlib_cmp_eq:
	xor a
	ret
strlib_cmp_lt:
	ld a,&FF
	ret
strlib_cmp_gt:
	ld a,1
	ret
`,
	},

	// Concatenate the string at DE then the string at HL into the
	// buffer at BC; returns HL = BC
	"strlib_concat": {
		Name: "strlib_concat",
		Body: `strlib_concat:
	push bc
	push hl
	ex de,hl
	ld d,b
	ld e,c
strlib_concat_a:
	ld a,(hl)
	or a
	jr z,strlib_concat_b
	ld (de),a
	inc hl
	inc de
	jr strlib_concat_a
strlib_concat_b:
	pop hl
strlib_concat_c:
	ld a,(hl)
	ld (de),a
	or a
	jr z,strlib_concat_d
	inc hl
	inc de
	jr strlib_concat_c
strlib_concat_d:
	pop hl
	ret
`,
	},

	// First L characters of the string at DE into the buffer at BC
	"strlib_left": {
		Name: "strlib_left",
		Body: `strlib_left:
	ld a,l
	push bc
	pop hl
	push hl
	or a
	jr z,strlib_left_term
	ld b,a
strlib_left_loop:
	ld a,(de)
	or a
	jr z,strlib_left_term
	ld (hl),a
	inc hl
	inc de
	djnz strlib_left_loop
strlib_left_term:
	ld (hl),0
	pop hl
	ret
`,
	},

	// Last L characters of the string at DE into the buffer at BC
	"strlib_right": {
		Name: "strlib_right",
		Deps: []string{"strlib_copy"},
		Body: `strlib_right:
	ex de,hl
	ld a,e
	ld d,h
	ld e,l
strlib_right_adv:
	or a
	jr z,strlib_right_scan
	push af
	ld a,(de)
	or a
	jr z,strlib_right_pop
	inc de
	pop af
	dec a
	jr strlib_right_adv
strlib_right_pop:
	pop af
strlib_right_scan:
	ld a,(de)
	or a
	jr z,strlib_right_copy
	inc de
	inc hl
	jr strlib_right_scan
strlib_right_copy:
	push bc
	pop de
	call strlib_copy
	push bc
	pop hl
	ret
`,
	},

	// Substring of the string at DE from 1-based position L into the
	// buffer at BC; the caller stores the count at strlib_arg first
	"strlib_mid": {
		Name:    "strlib_mid",
		Buffers: []Buffer{{Name: "strlib_arg", Size: 2}},
		Body: `strlib_mid:
	ld a,l
	or a
	jr nz,strlib_mid_adv
	inc a
strlib_mid_adv:
	dec a
	jr z,strlib_mid_copy
	push af
	ld a,(de)
	or a
	jr z,strlib_mid_end
	inc de
	pop af
	jr strlib_mid_adv
strlib_mid_end:
	pop af
strlib_mid_copy:
	ld a,(strlib_arg)
	push bc
	pop hl
	push hl
	or a
	jr z,strlib_mid_term
	ld b,a
strlib_mid_loop:
	ld a,(de)
	or a
	jr z,strlib_mid_term
	ld (hl),a
	inc hl
	inc de
	djnz strlib_mid_loop
strlib_mid_term:
	ld (hl),0
	pop hl
	ret
`,
	},

	// HL as four uppercase hex digits; returns HL = hex_buf
	"strlib_hex": {
		Name:    "strlib_hex",
		Buffers: []Buffer{{Name: "hex_buf", Size: 5}},
		Body: `strlib_hex:
	ld de,hex_buf
	ld a,h
	call strlib_hex_byte
	ld a,l
	call strlib_hex_byte
	xor a
	ld (de),a
	ld hl,hex_buf
	ret
strlib_hex_byte:
	push af
	rrca
	rrca
	rrca
	rrca
	call strlib_hex_nib
	pop af
strlib_hex_nib:
	and &0F
	add a,'0'
	cp '9'+1
	jr c,strlib_hex_put
	add a,7
strlib_hex_put:
	ld (de),a
	inc de
	ret
`,
	},

	// Leading signed decimal value of the string at HL, in HL
	"strlib_val": {
		Name: "strlib_val",
		Deps: []string{"intlib_neg"},
		Body: `strlib_val:
	ld de,0
	ld b,0
	ld a,(hl)
	cp '-'
	jr nz,strlib_val_loop
	ld b,1
	inc hl
strlib_val_loop:
	ld a,(hl)
	sub '0'
	jr c,strlib_val_done
	cp 10
	jr nc,strlib_val_done
	push bc
	push af
	ex de,hl
	add hl,hl
	ld b,h
	ld c,l
	add hl,hl
	add hl,hl
	add hl,bc
	pop af
	ld c,a
	ld b,0
	add hl,bc
	ex de,hl
	pop bc
	inc hl
	jr strlib_val_loop
strlib_val_done:
	ex de,hl
	ld a,b
	or a
	ret z
	jp intlib_neg
`,
	},

	// Non-blocking keyboard read into a one-character string
	"strlib_inkey": {
		Name:    "strlib_inkey",
		Buffers: []Buffer{{Name: "inkey_buf", Size: 2}},
		Body: `strlib_inkey:
	ld hl,inkey_buf
	xor a
	ld (hl),a
	call &BB09
	ret nc
	ld (hl),a
	xor a
	ld (inkey_buf+1),a
	ld hl,inkey_buf
	ret
`,
	},

	// Read an edited line from the keyboard; returns HL = input_buf
	"inputlib_line": {
		Name:    "inputlib_line",
		Deps:    []string{"strlib_print_nl"},
		Buffers: []Buffer{{Name: "input_buf", Size: 256}},
		Body: `inputlib_line:
	ld hl,input_buf
inputlib_line_key:
	call &BB06
	cp 13
	jr z,inputlib_line_done
	cp 127
	jr z,inputlib_line_del
	ld (hl),a
	inc hl
	call &BB5A
	jr inputlib_line_key
inputlib_line_del:
	ld de,input_buf
	or a
	sbc hl,de
	add hl,de
	jr z,inputlib_line_key
	dec hl
	ld a,8
	call &BB5A
	ld a,' '
	call &BB5A
	ld a,8
	call &BB5A
	jr inputlib_line_key
inputlib_line_done:
	ld (hl),0
	call strlib_print_nl
	ld hl,input_buf
	ret
`,
	},

	// Indirect call used by the CALL statement
	"calllib_jp": {
		Name: "calllib_jp",
		Body: `calllib_jp:
	jp (hl)
`,
	},

	// FOR range test: index in HL, limit in DE, step in BC.
	// Returns with Z set when the loop must exit.
	"forlib_check": {
		Name: "forlib_check",
		Deps: []string{"intlib_cmp"},
		Body: `forlib_check:
	bit 7,b
	jr nz,forlib_check_down
	call intlib_cmp
	cp 1
	jr z,forlib_check_exit
forlib_check_stay:
	ld a,1
	or a
	ret
forlib_check_down:
	call intlib_cmp
	cp &FF
	jr z,forlib_check_exit
	jr forlib_check_stay
forlib_check_exit:
	xor a
	ret
`,
	},

	// FOR range test over reals: pointers to index in HL, limit in DE,
	// step in BC. Returns with Z set when the loop must exit.
	"forlib_check_real": {
		Name: "forlib_check_real",
		Deps: []string{"reallib_cmp"},
		Body: `forlib_check_real:
	push hl
	ld h,b
	ld l,c
	inc hl
	inc hl
	inc hl
	ld a,(hl)
	pop hl
	bit 7,a
	jr nz,forlib_check_real_down
	call reallib_cmp
	cp 1
	jr z,forlib_check_real_exit
forlib_check_real_stay:
	ld a,1
	or a
	ret
forlib_check_real_down:
	call reallib_cmp
	cp &FF
	jr z,forlib_check_real_exit
	jr forlib_check_real_stay
forlib_check_real_exit:
	xor a
	ret
`,
	},

	// Fetch the next DATA record; returns HL = record text and advances
	// the pointer. At the end sentinel the pointer stays put.
	"datalib_read": {
		Name:    "datalib_read",
		Buffers: []Buffer{{Name: "data_ptr", Size: 2}},
		Body: `datalib_read:
	ld hl,(data_ptr)
	ld a,(hl)
	cp &FF
	ret z
	push hl
datalib_read_skip:
	ld a,(hl)
	inc hl
	or a
	jr nz,datalib_read_skip
	ld (data_ptr),hl
	pop hl
	ret
`,
	},

	// ------------------------------------------------------------------
	// 5-byte real routines. A real is four mantissa bytes little-endian
	// (top bit of the fourth replaced by the sign, leading 1 implicit)
	// and one exponent byte biased by 128.

	// Copy the real at HL to DE
	"reallib_copy": {
		Name: "reallib_copy",
		Body: `reallib_copy:
	ld bc,5
	ldir
	ret
`,
	},

	// Negate the real at HL in place
	"reallib_neg": {
		Name: "reallib_neg",
		Body: `reallib_neg:
	push hl
	inc hl
	inc hl
	inc hl
	ld a,(hl)
	xor &80
	ld (hl),a
	pop hl
	ret
`,
	},

	// Absolute value of the real at HL in place
	"reallib_abs": {
		Name: "reallib_abs",
		Body: `reallib_abs:
	push hl
	inc hl
	inc hl
	inc hl
	ld a,(hl)
	and &7F
	ld (hl),a
	pop hl
	ret
`,
	},

	// Convert the signed integer in HL; returns HL = real_acc
	"reallib_fromint": {
		Name:    "reallib_fromint",
		Deps:    []string{"intlib_neg"},
		Buffers: []Buffer{{Name: "real_acc", Size: 5}},
		Body: `reallib_fromint:
	ld a,h
	or l
	jr nz,reallib_fromint_nz
	ld hl,real_acc
	ld de,real_acc+1
	ld (hl),0
	ld bc,4
	ldir
	ld hl,real_acc
	ret
reallib_fromint_nz:
	ld c,0
	bit 7,h
	jr z,reallib_fromint_pos
	ld c,&80
	call intlib_neg
reallib_fromint_pos:
	ld b,144
reallib_fromint_norm:
	bit 7,h
	jr nz,reallib_fromint_done
	add hl,hl
	dec b
	jr reallib_fromint_norm
reallib_fromint_done:
	xor a
	ld (real_acc),a
	ld (real_acc+1),a
	ld a,l
	ld (real_acc+2),a
	ld a,h
	and &7F
	or c
	ld (real_acc+3),a
	ld a,b
	ld (real_acc+4),a
	ld hl,real_acc
	ret
`,
	},

	// Truncate the real at HL toward zero into an integer in HL
	"reallib_toint": {
		Name: "reallib_toint",
		Deps: []string{"intlib_neg"},
		Body: `reallib_toint:
	push hl
	inc hl
	inc hl
	ld a,(hl)
	ld e,a
	inc hl
	ld a,(hl)
	ld c,a
	or &80
	ld d,a
	inc hl
	ld a,(hl)
	pop hl
	sub 128
	jr z,reallib_toint_zero
	jr c,reallib_toint_zero
	cp 17
	jr nc,reallib_toint_ovf
	ld b,a
	ld a,16
	sub b
	jr z,reallib_toint_sign
	ld b,a
reallib_toint_shift:
	srl d
	rr e
	djnz reallib_toint_shift
reallib_toint_sign:
	ex de,hl
	bit 7,c
	ret z
	jp intlib_neg
reallib_toint_zero:
	ld hl,0
	ret
reallib_toint_ovf:
	ld hl,&7FFF
	bit 7,c
	ret z
	jp intlib_neg
`,
	},

	// Compare the real at HL against the real at DE:
	// A = &FF below, 0 equal, 1 above
	"reallib_cmp": {
		Name: "reallib_cmp",
		Body: `reallib_cmp:
	push hl
	push de
	ld b,0
	inc hl
	inc hl
	inc hl
	ld a,(hl)
	rlca
	rl b
	inc de
	inc de
	inc de
	ld a,(de)
	rlca
	rl b
	ld a,b
	cp 1
	jr z,reallib_cmp_gt2
	cp 2
	jr z,reallib_cmp_lt2
	inc hl
	inc de
	ld c,5
reallib_cmp_loop:
	ld a,(de)
	ld b,a
	ld a,(hl)
	cp b
	jr c,reallib_cmp_lt0
	jr nz,reallib_cmp_gt0
	dec hl
	dec de
	dec c
	jr nz,reallib_cmp_loop
	pop de
	pop hl
	xor a
	ret
reallib_cmp_lt0:
	pop de
	pop hl
	push hl
	inc hl
	inc hl
	inc hl
	ld a,(hl)
	pop hl
	bit 7,a
	jr nz,reallib_cmp_gt1
	ld a,&FF
	ret
reallib_cmp_gt0:
	pop de
	pop hl
	push hl
	inc hl
	inc hl
	inc hl
	ld a,(hl)
	pop hl
	bit 7,a
	jr nz,reallib_cmp_lt1
reallib_cmp_gt1:
	ld a,1
	ret
reallib_cmp_lt1:
	ld a,&FF
	ret
reallib_cmp_gt2:
	pop de
	pop hl
	ld a,1
	ret
reallib_cmp_lt2:
	pop de
	pop hl
	ld a,&FF
	ret
`,
	},

	// Add the real at HL into the real at DE
	"reallib_add": {
		Name: "reallib_add",
		Deps: []string{"reallib_copy"},
		Buffers: []Buffer{
			{Name: "fpw_m1", Size: 4},
			{Name: "fpw_m2", Size: 4},
			{Name: "fpw_tmp", Size: 5},
		},
		Body: `reallib_add:
	push ix
	push iy
	push de
	pop ix
	push hl
	pop iy
	ld a,(iy+4)
	or a
	jr z,reallib_add_done
	ld a,(ix+4)
	or a
	jr nz,reallib_add_both
	push iy
	pop hl
	push ix
	pop de
	call reallib_copy
	jr reallib_add_done
reallib_add_both:
	ld a,(ix+4)
	cp (iy+4)
	jr nc,reallib_add_ordered
	push ix
	pop hl
	ld de,fpw_tmp
	call reallib_copy
	push iy
	pop hl
	push ix
	pop de
	call reallib_copy
	ld iy,fpw_tmp
reallib_add_ordered:
	ld a,(ix+4)
	sub (iy+4)
	cp 32
	jr c,reallib_add_near
	jr reallib_add_done
reallib_add_near:
	ld b,a
	ld a,(iy+0)
	ld (fpw_m2+0),a
	ld a,(iy+1)
	ld (fpw_m2+1),a
	ld a,(iy+2)
	ld (fpw_m2+2),a
	ld a,(iy+3)
	or &80
	ld (fpw_m2+3),a
	ld a,b
	or a
	jr z,reallib_add_aligned
reallib_add_shift:
	ld hl,fpw_m2+3
	srl (hl)
	dec hl
	rr (hl)
	dec hl
	rr (hl)
	dec hl
	rr (hl)
	djnz reallib_add_shift
reallib_add_aligned:
	ld a,(ix+0)
	ld (fpw_m1+0),a
	ld a,(ix+1)
	ld (fpw_m1+1),a
	ld a,(ix+2)
	ld (fpw_m1+2),a
	ld a,(ix+3)
	or &80
	ld (fpw_m1+3),a
	ld a,(ix+3)
	xor (iy+3)
	and &80
	jr nz,reallib_add_sub
	ld hl,fpw_m1
	ld de,fpw_m2
	ld a,(de)
	add a,(hl)
	ld (hl),a
	inc hl
	inc de
	ld a,(de)
	adc a,(hl)
	ld (hl),a
	inc hl
	inc de
	ld a,(de)
	adc a,(hl)
	ld (hl),a
	inc hl
	inc de
	ld a,(de)
	adc a,(hl)
	ld (hl),a
	jr nc,reallib_add_pack
	ld hl,fpw_m1+3
	rr (hl)
	dec hl
	rr (hl)
	dec hl
	rr (hl)
	dec hl
	rr (hl)
	inc (ix+4)
	jr z,reallib_add_done
	jr reallib_add_pack
reallib_add_sub:
	ld hl,fpw_m1
	ld de,fpw_m2
	ld a,(de)
	ld c,a
	ld a,(hl)
	sub c
	ld (hl),a
	inc hl
	inc de
	ld a,(de)
	ld c,a
	ld a,(hl)
	sbc a,c
	ld (hl),a
	inc hl
	inc de
	ld a,(de)
	ld c,a
	ld a,(hl)
	sbc a,c
	ld (hl),a
	inc hl
	inc de
	ld a,(de)
	ld c,a
	ld a,(hl)
	sbc a,c
	ld (hl),a
	jr nc,reallib_add_norm
	ld hl,fpw_m1
	xor a
	sub (hl)
	ld (hl),a
	inc hl
	ld a,0
	sbc a,(hl)
	ld (hl),a
	inc hl
	ld a,0
	sbc a,(hl)
	ld (hl),a
	inc hl
	ld a,0
	sbc a,(hl)
	ld (hl),a
	ld a,(iy+3)
	and &80
	ld c,a
	jr reallib_add_norm2
reallib_add_norm:
	ld a,(ix+3)
	and &80
	ld c,a
reallib_add_norm2:
	ld a,(fpw_m1+0)
	ld hl,fpw_m1+1
	or (hl)
	inc hl
	or (hl)
	inc hl
	or (hl)
	jr nz,reallib_add_norm3
	xor a
	ld (ix+0),a
	ld (ix+1),a
	ld (ix+2),a
	ld (ix+3),a
	ld (ix+4),a
	jr reallib_add_done
reallib_add_norm3:
	ld a,(fpw_m1+3)
	and &80
	jr nz,reallib_add_pack2
	ld hl,fpw_m1
	sla (hl)
	inc hl
	rl (hl)
	inc hl
	rl (hl)
	inc hl
	rl (hl)
	dec (ix+4)
	jr reallib_add_norm3
reallib_add_pack:
	ld a,(ix+3)
	and &80
	ld c,a
reallib_add_pack2:
	ld a,(fpw_m1+0)
	ld (ix+0),a
	ld a,(fpw_m1+1)
	ld (ix+1),a
	ld a,(fpw_m1+2)
	ld (ix+2),a
	ld a,(fpw_m1+3)
	and &7F
	or c
	ld (ix+3),a
reallib_add_done:
	pop iy
	pop ix
	ret
`,
	},

	// Subtract the real at HL from the real at DE
	"reallib_sub": {
		Name:    "reallib_sub",
		Deps:    []string{"reallib_copy", "reallib_neg", "reallib_add"},
		Buffers: []Buffer{{Name: "fpw_sub", Size: 5}},
		Body: `reallib_sub:
	push de
	ld de,fpw_sub
	call reallib_copy
	ld hl,fpw_sub
	call reallib_neg
	pop de
	jp reallib_add
`,
	},

	// Multiply the real at DE by the real at HL
	"reallib_mul": {
		Name: "reallib_mul",
		Buffers: []Buffer{
			{Name: "fpw_m1", Size: 4},
			{Name: "fpw_m2", Size: 4},
			{Name: "fpw_prod", Size: 8},
			{Name: "fpw_exp", Size: 1},
		},
		Body: `reallib_mul:
	push ix
	push iy
	push de
	pop ix
	push hl
	pop iy
	ld a,(ix+4)
	or a
	jr z,reallib_mul_done
	ld a,(iy+4)
	or a
	jr z,reallib_mul_zero
	ld l,(ix+4)
	ld h,0
	ld e,(iy+4)
	ld d,0
	add hl,de
	ld de,128
	or a
	sbc hl,de
	bit 7,h
	jr nz,reallib_mul_zero
	ld a,h
	or a
	jr z,reallib_mul_eok
	ld l,255
reallib_mul_eok:
	ld a,l
	or a
	jr z,reallib_mul_zero
	ld (fpw_exp),a
	ld a,(ix+0)
	ld (fpw_m1+0),a
	ld a,(ix+1)
	ld (fpw_m1+1),a
	ld a,(ix+2)
	ld (fpw_m1+2),a
	ld a,(ix+3)
	or &80
	ld (fpw_m1+3),a
	ld a,(iy+0)
	ld (fpw_m2+0),a
	ld a,(iy+1)
	ld (fpw_m2+1),a
	ld a,(iy+2)
	ld (fpw_m2+2),a
	ld a,(iy+3)
	or &80
	ld (fpw_m2+3),a
	xor a
	ld hl,fpw_prod
	ld b,8
reallib_mul_clr:
	ld (hl),a
	inc hl
	djnz reallib_mul_clr
	ld b,32
reallib_mul_loop:
	ld a,(fpw_m2)
	and 1
	jr z,reallib_mul_shift
	push bc
	ld hl,fpw_m1
	ld de,fpw_prod+4
	ld b,4
reallib_mul_addb:
	ld a,(de)
	adc a,(hl)
	ld (de),a
	inc hl
	inc de
	djnz reallib_mul_addb
	pop bc
reallib_mul_shift:
	ld hl,fpw_prod+7
	rr (hl)
	dec hl
	rr (hl)
	dec hl
	rr (hl)
	dec hl
	rr (hl)
	dec hl
	rr (hl)
	dec hl
	rr (hl)
	dec hl
	rr (hl)
	dec hl
	rr (hl)
	ld hl,fpw_m2+3
	srl (hl)
	dec hl
	rr (hl)
	dec hl
	rr (hl)
	dec hl
	rr (hl)
	djnz reallib_mul_loop
	ld a,(fpw_prod+7)
	bit 7,a
	jr nz,reallib_mul_pack
	ld hl,fpw_prod+4
	sla (hl)
	inc hl
	rl (hl)
	inc hl
	rl (hl)
	inc hl
	rl (hl)
	ld a,(fpw_exp)
	dec a
	jr z,reallib_mul_zero
	ld (fpw_exp),a
reallib_mul_pack:
	ld a,(ix+3)
	xor (iy+3)
	and &80
	ld c,a
	ld a,(fpw_prod+4)
	ld (ix+0),a
	ld a,(fpw_prod+5)
	ld (ix+1),a
	ld a,(fpw_prod+6)
	ld (ix+2),a
	ld a,(fpw_prod+7)
	and &7F
	or c
	ld (ix+3),a
	ld a,(fpw_exp)
	ld (ix+4),a
	jr reallib_mul_done
reallib_mul_zero:
	xor a
	ld (ix+0),a
	ld (ix+1),a
	ld (ix+2),a
	ld (ix+3),a
	ld (ix+4),a
reallib_mul_done:
	pop iy
	pop ix
	ret
`,
	},

	// Divide the real at DE by the real at HL
	"reallib_div": {
		Name: "reallib_div",
		Buffers: []Buffer{
			{Name: "fpw_m1", Size: 4},
			{Name: "fpw_m2", Size: 4},
			{Name: "fpw_prod", Size: 8},
			{Name: "fpw_exp", Size: 1},
			{Name: "fpw_flag", Size: 1},
		},
		Body: `reallib_div:
	push ix
	push iy
	push de
	pop ix
	push hl
	pop iy
	ld a,(iy+4)
	or a
	jr z,reallib_div_zero
	ld a,(ix+4)
	or a
	jr z,reallib_div_done
	ld l,(ix+4)
	ld h,0
	ld e,(iy+4)
	ld d,0
	or a
	sbc hl,de
	ld de,128
	add hl,de
	bit 7,h
	jr nz,reallib_div_zero
	ld a,h
	or a
	jr z,reallib_div_eok
	ld l,255
reallib_div_eok:
	ld a,l
	or a
	jr z,reallib_div_zero
	ld (fpw_exp),a
	ld a,(ix+0)
	ld (fpw_m1+0),a
	ld a,(ix+1)
	ld (fpw_m1+1),a
	ld a,(ix+2)
	ld (fpw_m1+2),a
	ld a,(ix+3)
	or &80
	ld (fpw_m1+3),a
	ld a,(iy+0)
	ld (fpw_m2+0),a
	ld a,(iy+1)
	ld (fpw_m2+1),a
	ld a,(iy+2)
	ld (fpw_m2+2),a
	ld a,(iy+3)
	or &80
	ld (fpw_m2+3),a
	xor a
	ld (fpw_prod+0),a
	ld (fpw_prod+1),a
	ld (fpw_prod+2),a
	ld (fpw_prod+3),a
	call reallib_div_trial
	ld (fpw_flag),a
	ld b,32
reallib_div_loop:
	push bc
	ld hl,fpw_m1
	sla (hl)
	inc hl
	rl (hl)
	inc hl
	rl (hl)
	inc hl
	rl (hl)
	jr nc,reallib_div_notop
	call reallib_div_trial_sub
	jr reallib_div_bit
reallib_div_notop:
	call reallib_div_trial
reallib_div_bit:
	ld c,a
	ld hl,fpw_prod
	sla (hl)
	inc hl
	rl (hl)
	inc hl
	rl (hl)
	inc hl
	rl (hl)
	ld a,(fpw_prod)
	or c
	ld (fpw_prod),a
	pop bc
	djnz reallib_div_loop
	ld a,(fpw_flag)
	or a
	jr z,reallib_div_pack
	ld hl,fpw_prod+3
	scf
	rr (hl)
	dec hl
	rr (hl)
	dec hl
	rr (hl)
	dec hl
	rr (hl)
	ld a,(fpw_exp)
	inc a
	jr z,reallib_div_zero
	ld (fpw_exp),a
reallib_div_pack:
	ld a,(ix+3)
	xor (iy+3)
	and &80
	ld c,a
	ld a,(fpw_prod+0)
	ld (ix+0),a
	ld a,(fpw_prod+1)
	ld (ix+1),a
	ld a,(fpw_prod+2)
	ld (ix+2),a
	ld a,(fpw_prod+3)
	and &7F
	or c
	ld (ix+3),a
	ld a,(fpw_exp)
	ld (ix+4),a
	jr reallib_div_done
reallib_div_zero:
	xor a
	ld (ix+0),a
	ld (ix+1),a
	ld (ix+2),a
	ld (ix+3),a
	ld (ix+4),a
reallib_div_done:
	pop iy
	pop ix
	ret
reallib_div_trial:
	ld hl,fpw_m1+3
	ld de,fpw_m2+3
	ld b,4
reallib_div_trial_cmp:
	ld a,(de)
	ld c,a
	ld a,(hl)
	cp c
	jr c,reallib_div_trial_no
	jr nz,reallib_div_trial_sub
	dec hl
	dec de
	djnz reallib_div_trial_cmp
reallib_div_trial_sub:
	ld hl,fpw_m1
	ld de,fpw_m2
	ld b,4
	or a
reallib_div_trial_subb:
	ld a,(de)
	ld c,a
	ld a,(hl)
	sbc a,c
	ld (hl),a
	inc hl
	inc de
	djnz reallib_div_trial_subb
	ld a,1
	ret
reallib_div_trial_no:
	xor a
	ret
`,
	},

	// Raise the real at DE to the power at HL; the exponent is
	// truncated to an integer, negative exponents yield zero
	"reallib_pow": {
		Name:    "reallib_pow",
		Deps:    []string{"reallib_toint", "reallib_copy", "reallib_mul"},
		Buffers: []Buffer{{Name: "fpw_base", Size: 5}},
		Body: `reallib_pow:
	push de
	call reallib_toint
	pop de
	bit 7,h
	jr nz,reallib_pow_zero
	ld a,h
	or l
	jr nz,reallib_pow_go
	ex de,hl
	ld (hl),0
	inc hl
	ld (hl),0
	inc hl
	ld (hl),0
	inc hl
	ld (hl),0
	inc hl
	ld (hl),129
	ret
reallib_pow_go:
	ld b,h
	ld c,l
	push de
	push bc
	ex de,hl
	ld de,fpw_base
	call reallib_copy
	pop bc
	pop de
	dec bc
reallib_pow_loop:
	ld a,b
	or c
	jr z,reallib_pow_done
	push bc
	push de
	ld hl,fpw_base
	call reallib_mul
	pop de
	pop bc
	dec bc
	jr reallib_pow_loop
reallib_pow_zero:
	ex de,hl
	ld (hl),0
	inc hl
	ld (hl),0
	inc hl
	ld (hl),0
	inc hl
	ld (hl),0
	inc hl
	ld (hl),0
reallib_pow_done:
	ret
`,
	},

	// Format the real at HL into decimal ASCII; large magnitudes scale
	// down by ten and print an E+ suffix. Returns HL = real_str_buf.
	"reallib_str": {
		Name: "reallib_str",
		Deps: []string{
			"reallib_copy", "reallib_abs", "reallib_div", "reallib_mul",
			"reallib_toint", "reallib_fromint", "reallib_sub",
			"strlib_int2str",
		},
		Buffers: []Buffer{
			{Name: "fpw_val", Size: 5},
			{Name: "real_str_buf", Size: 16},
		},
		Body: `reallib_str:
	push ix
	ld de,fpw_val
	call reallib_copy
	ld ix,real_str_buf
	ld a,(fpw_val+3)
	bit 7,a
	jr z,reallib_str_scale
	ld (ix+0),'-'
	inc ix
	ld hl,fpw_val
	call reallib_abs
reallib_str_scale:
	ld b,0
reallib_str_scale_loop:
	ld a,(fpw_val+4)
	cp 144
	jr c,reallib_str_int
	push bc
	ld de,fpw_val
	ld hl,reallib_str_ten
	call reallib_div
	pop bc
	inc b
	jr reallib_str_scale_loop
reallib_str_int:
	push bc
	ld hl,fpw_val
	call reallib_toint
	push hl
	call strlib_int2str
reallib_str_copyint:
	ld a,(hl)
	or a
	jr z,reallib_str_frac0
	ld (ix+0),a
	inc ix
	inc hl
	jr reallib_str_copyint
reallib_str_frac0:
	pop hl
	call reallib_fromint
	ld de,fpw_val
	call reallib_sub
	ld a,(fpw_val+4)
	or a
	jr z,reallib_str_exp
	ld (ix+0),'.'
	inc ix
	ld b,4
reallib_str_frac_loop:
	push bc
	ld de,fpw_val
	ld hl,reallib_str_ten
	call reallib_mul
	ld hl,fpw_val
	call reallib_toint
	push hl
	ld a,l
	add a,'0'
	ld (ix+0),a
	inc ix
	pop hl
	call reallib_fromint
	ld de,fpw_val
	call reallib_sub
	pop bc
	ld a,(fpw_val+4)
	or a
	jr z,reallib_str_exp
	djnz reallib_str_frac_loop
reallib_str_exp:
	pop bc
	ld a,b
	or a
	jr z,reallib_str_done
	ld (ix+0),'E'
	inc ix
	ld (ix+0),'+'
	inc ix
	ld l,b
	ld h,0
	call strlib_int2str
reallib_str_copyexp:
	ld a,(hl)
	or a
	jr z,reallib_str_done
	ld (ix+0),a
	inc ix
	inc hl
	jr reallib_str_copyexp
reallib_str_done:
	ld (ix+0),0
	pop ix
	ld hl,real_str_buf
	ret
reallib_str_ten:
	db &00,&00,&00,&20,&84
`,
	},

	// Print the real at HL
	"reallib_print": {
		Name: "reallib_print",
		Deps: []string{"reallib_str", "strlib_print_str"},
		Body: `reallib_print:
	call reallib_str
	jp strlib_print_str
`,
	},
}
