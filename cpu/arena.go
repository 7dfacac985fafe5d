package cpu

const (
	IMAGE_SIZE = 0x1_0000 // Size of the memory image, in bytes.
	ARENA_CODE = 0x0_0000 // Start of instruction code.
	ARENA_DATA = 0x0_8000 // Start of .ascii static data.
)
