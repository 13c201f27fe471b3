package dashboard

// User-facing notice texts.
const (
	MsgScanComplete     = "Scan complete! Devices discovered."
	MsgScanFailed       = "Scan failed. No devices found."
	MsgRegistered       = "Device registered"
	MsgRegisterFailed   = "Failed to register device"
	MsgUnregistered     = "Device unregistered"
	MsgUnregisterFailed = "Failed to unregister device"
	MsgAdded            = "Device added successfully"
	MsgAddFailed        = "Failed to add device (may already exist)"
	MsgRemoved          = "Device removed successfully"
	MsgRemoveFailed     = "Failed to remove device"
)
