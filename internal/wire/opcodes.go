package wire

// Request opcodes, SSH_FXP_* per draft-ietf-secsh-filexfer-02 §3.
const (
	opInit     uint8 = 1
	opOpen     uint8 = 3
	opClose    uint8 = 4
	opRead     uint8 = 5
	opWrite    uint8 = 6
	opLstat    uint8 = 7
	opFstat    uint8 = 8
	opSetstat  uint8 = 9
	opFsetstat uint8 = 10
	opOpendir  uint8 = 11
	opReaddir  uint8 = 12
	opRemove   uint8 = 13
	opMkdir    uint8 = 14
	opRmdir    uint8 = 15
	opRealpath uint8 = 16
	opStat     uint8 = 17
	opRename   uint8 = 18
	opReadlink uint8 = 19
	opSymlink  uint8 = 20
)

// Response opcodes.
const (
	opVersion uint8 = 2
	opStatus  uint8 = 101
	opHandle  uint8 = 102
	opData    uint8 = 103
	opName    uint8 = 104
	opAttrs   uint8 = 105
)

// pflags bit values, OPEN's pflags field.
const (
	PFlagRead   uint32 = 0x01
	PFlagWrite  uint32 = 0x02
	PFlagAppend uint32 = 0x04
	PFlagCreat  uint32 = 0x08
	PFlagTrunc  uint32 = 0x10
	PFlagExcl   uint32 = 0x20
)

// ProtocolVersion is the only SFTP version this server speaks.
const ProtocolVersion uint32 = 3
