package riscvgen

// Every value lives in memory between instructions, so four fixed
// registers suffice: the return-value register and three scratch
// registers shared by all load/store/arithmetic sequences.
const (
	regRet = "a0"
	regX   = "t1"
	regY   = "t2"
	regZ   = "t3"
)
