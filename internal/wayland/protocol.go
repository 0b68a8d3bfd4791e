package wayland

// Interface names and the versions this client speaks
const (
	ifaceCompositor = "wl_compositor"
	ifaceShm        = "wl_shm"
	ifaceOutput     = "wl_output"
	ifaceLayerShell = "zwlr_layer_shell_v1"

	versionCompositor = 4
	versionShm        = 1
	versionOutput     = 4
	versionLayerShell = 1
)

const displayID uint32 = 1

// wl_display
const (
	displaySync        uint16 = 0
	displayGetRegistry uint16 = 1

	displayEventError    uint16 = 0
	displayEventDeleteID uint16 = 1
)

// wl_registry
const (
	registryBind uint16 = 0

	registryEventGlobal       uint16 = 0
	registryEventGlobalRemove uint16 = 1
)

// wl_callback
const callbackEventDone uint16 = 0

// wl_compositor
const compositorCreateSurface uint16 = 0

// wl_surface
const (
	surfaceDestroy        uint16 = 0
	surfaceAttach         uint16 = 1
	surfaceCommit         uint16 = 6
	surfaceSetBufferScale uint16 = 8
	surfaceDamageBuffer   uint16 = 9
)

// wl_shm, wl_shm_pool, wl_buffer
const (
	shmCreatePool uint16 = 0

	shmPoolCreateBuffer uint16 = 0
	shmPoolDestroy      uint16 = 1
	shmPoolResize       uint16 = 2

	bufferDestroy      uint16 = 0
	bufferEventRelease uint16 = 0

	// formatARGB8888 is WL_SHM_FORMAT_ARGB8888
	formatARGB8888 uint32 = 0
)

// wl_output
const (
	outputRelease uint16 = 0

	outputEventGeometry    uint16 = 0
	outputEventMode        uint16 = 1
	outputEventDone        uint16 = 2
	outputEventScale       uint16 = 3
	outputEventName        uint16 = 4
	outputEventDescription uint16 = 5

	outputModeCurrent uint32 = 0x1
)

// zwlr_layer_shell_v1, zwlr_layer_surface_v1
const (
	layerShellGetLayerSurface uint16 = 0

	layerBackground uint32 = 0

	layerSurfaceSetSize          uint16 = 0
	layerSurfaceSetAnchor        uint16 = 1
	layerSurfaceSetExclusiveZone uint16 = 2
	layerSurfaceAckConfigure     uint16 = 6
	layerSurfaceDestroy          uint16 = 7

	layerSurfaceEventConfigure uint16 = 0
	layerSurfaceEventClosed    uint16 = 1

	anchorTop    uint32 = 1
	anchorBottom uint32 = 2
	anchorLeft   uint32 = 4
	anchorRight  uint32 = 8
	anchorAll           = anchorTop | anchorBottom | anchorLeft | anchorRight
)
