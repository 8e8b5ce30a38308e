package config

import (
	"io/fs"
	"time"
)

// -----------------------------------------------------------------------------
// Build Information
// -----------------------------------------------------------------------------

// Build variables are injected via -ldflags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// UserAgent identifies the HTTP client.
var UserAgent = "Go-Prayer/" + Version

// -----------------------------------------------------------------------------
// Application Constants
// -----------------------------------------------------------------------------

const (
	AppName           = "Go Prayer"
	AppID             = "com.github.tartampluch.go-prayer"
	KeyringService    = "com.github.tartampluch.go-prayer"
	KeyringCoordsUser = "device_coordinates"
	LocalhostBindAddr = "127.0.0.1"
	LogFileName       = "app.log"
	DBFileName        = "prayer.db"
)

// -----------------------------------------------------------------------------
// Exit Codes
// -----------------------------------------------------------------------------

const (
	ExitCodeSuccess = 0
	ExitCodeError   = 1
)

// -----------------------------------------------------------------------------
// System & File Permissions
// -----------------------------------------------------------------------------

const (
	// FilePermUserRW represents -rw------- (Read/Write for owner only).
	// Used for sensitive files like logs.
	FilePermUserRW fs.FileMode = 0600

	// DirPermUserRWX represents drwx------ (Read/Write/Exec for owner only).
	// Used for creating secure cache directories.
	DirPermUserRWX fs.FileMode = 0700

	// ChannelBufferSize defines the standard buffer size for internal signaling channels.
	ChannelBufferSize = 1
)

// -----------------------------------------------------------------------------
// CLI Flags, Environment & Descriptions
// -----------------------------------------------------------------------------

const (
	FlagVersion      = "version"
	FlagDebug        = "debug"
	FlagHeadless     = "headless"
	FlagSettings     = "settings"
	FlagDescVersion  = "Show application version and exit"
	FlagDescDebug    = "Enable debug logging to stdout"
	FlagDescHeadless = "Run without the system tray, reading settings from a YAML file"
	FlagDescSettings = "Path to the YAML settings file (headless mode)"
	MsgVersionOutput = "%s version %s (%s/%s)\n"

	DefaultSettingsFile = "settings.yaml"

	EnvFile        = ".env"
	EnvDBPath      = "GO_PRAYER_DB"
	EnvProviderURL = "GO_PRAYER_PROVIDER_URL"
	EnvMQTTBroker  = "GO_PRAYER_MQTT_BROKER"
	EnvMQTTTopic   = "GO_PRAYER_MQTT_TOPIC"
	EnvPort        = "GO_PRAYER_PORT"
)

// -----------------------------------------------------------------------------
// Preferences (tray mode settings boundary)
// -----------------------------------------------------------------------------

const (
	PrefCity          = "city"
	PrefCountry       = "country"
	PrefUseDeviceLoc  = "use_device_location"
	PrefSchool        = "school"
	PrefNotifications = "notifications_enabled"
	PrefWidgetEnabled = "widget_enabled"
	PrefLanguage      = "language"
	PrefServerPort    = "server_port"
	PrefLastRun       = "last_run_version"
)

// SupportedLanguages defines the list of available UI languages (ISO 639-1).
var SupportedLanguages = []string{"en", "fr"}

// -----------------------------------------------------------------------------
// UI Constants
// -----------------------------------------------------------------------------

const (
	SettingsWindowWidth = 520
	LayoutColumnsDouble = 2
	CoordsSeparator     = ","
	CoordsFormat        = "%f,%f"
	TrayLineFormat      = "%s · %s"
	MaxLatitude         = 90.0
	MaxLongitude        = 180.0
)

// -----------------------------------------------------------------------------
// Translation Keys (I18n)
// -----------------------------------------------------------------------------

const (
	TKeyWinTitle         = "win_title"
	TKeyMenuSync         = "menu_sync"
	TKeyMenuSettings     = "menu_settings"
	TKeyNotifTitle       = "notif_title"
	TKeyNotifBody        = "notif_body" // Requires Prayer
	TKeyNotifSyncOK      = "notif_sync_success"
	TKeyLocationRequired = "lbl_location_required"
	TKeyUnableToLoad     = "lbl_unable_to_load"
	TKeyNextPrayer       = "lbl_next_prayer" // Requires Prayer
	TKeyNextUnknown      = "lbl_next_unknown"
	TKeyLblLocation      = "lbl_location"
	TKeyLblCity          = "lbl_city"
	TKeyLblCountry       = "lbl_country"
	TKeyLblLatitude      = "lbl_latitude"
	TKeyLblLongitude     = "lbl_longitude"
	TKeyLblUseDevice     = "lbl_use_device_location"
	TKeyLblSchool        = "lbl_school"
	TKeySchoolShafi      = "school_shafi"
	TKeySchoolHanafi     = "school_hanafi"
	TKeyLblGeneral       = "lbl_general"
	TKeyLblLanguage      = "lbl_language"
	TKeyLblNotif         = "lbl_notifications"
	TKeyLblWidget        = "lbl_widget_enabled"
	TKeyBtnSave          = "btn_save"
	TKeyBtnCancel        = "btn_cancel"
	TKeyLblFooter        = "lbl_footer"
	TKeyErrCoords        = "err_coordinates"

	// Prayer names
	TKeyPrayerFajr    = "prayer_fajr"
	TKeyPrayerDhuhr   = "prayer_dhuhr"
	TKeyPrayerAsr     = "prayer_asr"
	TKeyPrayerMaghrib = "prayer_maghrib"
	TKeyPrayerIsha    = "prayer_isha"
)

// -----------------------------------------------------------------------------
// Default Values & Business Logic
// -----------------------------------------------------------------------------

const (
	DefaultPort          = "18081"
	DefaultLanguage      = "en"
	DefaultSchool        = 1
	DefaultUseDeviceLoc  = true
	DefaultNotifications = false
	DefaultWidgetEnabled = true

	// CalculationMethod is passed to the provider unchanged for every request.
	CalculationMethod = 1

	// PrefetchDays is the number of consecutive days hydrated by one sync (today included).
	PrefetchDays = 3
)

// -----------------------------------------------------------------------------
// Engine Timings
// -----------------------------------------------------------------------------

const (
	// ShortRetryInterval re-runs a refresh cycle after a failed or unconfigured one.
	ShortRetryInterval = 5 * time.Minute

	// SyncRetryInterval re-runs a failed midnight sync while the retry window is open.
	SyncRetryInterval = 10 * time.Minute

	// RetryWindowDuration caps how long failures are retried on the short interval.
	RetryWindowDuration = 3 * 24 * time.Hour

	// BoundaryLead is subtracted from a prayer boundary when arming the next wake-up.
	BoundaryLead = 300 * time.Millisecond

	// WindowLookahead is added to now when picking the window to display, so a
	// wake-up armed BoundaryLead early already shows the prayer that starts.
	WindowLookahead = 1 * time.Second

	// MinWakeDelay is the smallest delay accepted by the wake scheduler.
	MinWakeDelay = 1 * time.Second

	// NotificationWindow is how long after a prayer starts a notification may fire.
	NotificationWindow = 2 * time.Minute

	// ResumeCheckInterval is how often the wall clock is compared to the monotonic clock.
	ResumeCheckInterval = 30 * time.Second

	// ResumeDriftThreshold is the wall/monotonic drift treated as a suspend or clock change.
	ResumeDriftThreshold = 5 * time.Second

	// LiveTickInterval drives the tray countdown re-render.
	LiveTickInterval = 1 * time.Second

	// SettingsDebounce coalesces bursts of settings file events.
	SettingsDebounce = 500 * time.Millisecond
)

// -----------------------------------------------------------------------------
// Provider (remote prayer-times oracle)
// -----------------------------------------------------------------------------

const (
	DefaultProviderURL   = "https://api.aladhan.com"
	ProviderPathCoords   = "/v1/timings/"
	ProviderPathCity     = "/v1/timingsByCity/"
	ProviderDateLayout   = "02-01-2006"
	ProviderHijriSuffix  = "AH"
	QueryLatitude        = "latitude"
	QueryLongitude       = "longitude"
	QueryCity            = "city"
	QueryCountry         = "country"
	QueryMethod          = "method"
	QuerySchool          = "school"
	MaxProviderBodyBytes = 1 * 1024 * 1024
)

// -----------------------------------------------------------------------------
// Display Strings & Formats
// -----------------------------------------------------------------------------

const (
	ISODateLayout       = "2006-01-02"
	TimeOfDayLayout     = "%02d:%02d"
	CountdownFormat     = "%02d:%02d:%02d"
	CountdownZero       = "00:00:00"
	CountdownUnknown    = "--:--:--"
	FooterUnknown       = "--, --"
	FooterFormat        = "%s, %s"
	DateUnknown         = "--"
	LabelLocationNeeded = "location required"
	LabelUnableToLoad   = "unable to load"
	LabelNextPrayer     = "next prayer: %s"
	LabelNextUnknown    = "next prayer: --"
	NotificationKeyFmt  = "%s-%s"
	CoordsKeyFormat     = "coords:%.6f,%.6f|m%d|s%d"
	CityKeyFormat       = "city:%s,%s|m%d|s%d"
)

// -----------------------------------------------------------------------------
// Standards: iCalendar
// -----------------------------------------------------------------------------

const (
	ICalVersion = "2.0"
	ICalProdid  = "-//Go Prayer//Engine//EN"
	ICalCalName = "Prayer Times"
	ICalMethod  = "PUBLISH"
	ICalScale   = "GREGORIAN"
	ICalDomain  = "goprayer"

	PropUID        = "UID"
	PropSummary    = "SUMMARY"
	PropDTStart    = "DTSTART"
	PropDTStamp    = "DTSTAMP"
	PropRefresh    = "REFRESH-INTERVAL"
	PropVersion    = "VERSION"
	PropProdid     = "PRODID"
	PropXWRCalName = "X-WR-CALNAME"
	PropCalScale   = "CALSCALE"
	PropMethod     = "METHOD"
	PropCategories = "CATEGORIES"

	FormatUID          = "%s-%s@%s"
	DefaultICalRefresh = 6 * time.Hour

	// StubVCalendar is the minimal valid iCalendar object used when no days are cached.
	StubVCalendar = "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:" + ICalProdid + "\r\nEND:VCALENDAR\r\n"
)

// -----------------------------------------------------------------------------
// Network & Timeouts
// -----------------------------------------------------------------------------

const (
	HTTPTimeout        = 15 * time.Second
	ShutdownTimeout    = 5 * time.Second
	ServerReadTimeout  = 10 * time.Second
	ServerWriteTimeout = 30 * time.Second
	ServerIdleTimeout  = 60 * time.Second
	RetryAfterSeconds  = "10"
	AllowedMethods     = "GET, HEAD"
	SchemeHTTP         = "http"
	SchemeHTTPS        = "https"
	RouteRoot          = "/"
	RouteCalendar      = "/calendar.ics"
	RouteState         = "/state"
	RouteMetrics       = "/metrics"
	AddrSeparator      = ":"
)

// -----------------------------------------------------------------------------
// MQTT (remote displays)
// -----------------------------------------------------------------------------

const (
	DefaultMQTTTopic     = "goprayer/widget/state"
	MQTTClientIDFormat   = "go-prayer-%s"
	MQTTQoS              = 1
	MQTTRetained         = true
	MQTTConnectTimeout   = 10 * time.Second
	MQTTPublishTimeout   = 5 * time.Second
	MQTTDisconnectMillis = 250
)

// -----------------------------------------------------------------------------
// Persistence (SQLite regions)
// -----------------------------------------------------------------------------

const (
	DriverSQLite       = "sqlite"
	RegionCache        = "cache"
	RegionRetryUntil   = "retry_until"
	RegionLastState    = "last_state"
	RegionLastFiredKey = "last_fired_key"
	MigrationsDir      = "migrations"
)

// -----------------------------------------------------------------------------
// Wake Channels
// -----------------------------------------------------------------------------

const (
	WakeChannelPrayer   = "prayer"
	WakeChannelMidnight = "midnight"
	WakeJobNameFormat   = "wake-%s"
)

// -----------------------------------------------------------------------------
// HTTP Headers & MIME Types
// -----------------------------------------------------------------------------

const (
	HeaderContentType     = "Content-Type"
	HeaderCacheControl    = "Cache-Control"
	HeaderETag            = "ETag"
	HeaderLastModified    = "Last-Modified"
	HeaderRetryAfter      = "Retry-After"
	HeaderAllow           = "Allow"
	HeaderXContentType    = "X-Content-Type-Options"
	HeaderUserAgent       = "User-Agent"
	HeaderAccept          = "Accept"
	HeaderIfNoneMatch     = "If-None-Match"
	HeaderIfModifiedSince = "If-Modified-Since"

	MimeTextCalendar    = "text/calendar; charset=utf-8"
	MimeJSON            = "application/json"
	MimeNoSniff         = "nosniff"
	CacheControlPrivate = "private, no-cache"

	// FormatETag expects a string argument.
	FormatETag = `"%s"`
)

// -----------------------------------------------------------------------------
// Metrics
// -----------------------------------------------------------------------------

const (
	MetricsNamespace = "goprayer"
	MetricResultOK   = "success"
	MetricResultFail = "failure"
)

// -----------------------------------------------------------------------------
// Error Messages (Technical/Logs)
// -----------------------------------------------------------------------------

const (
	ErrConfiguration    = "configuration error: no location configured"
	ErrFetchFailed      = "prayer times fetch failed"
	ErrScheduleFailed   = "wake scheduling failed"
	ErrProviderStatus   = "provider returned unexpected status"
	ErrProviderDecode   = "failed to decode provider response"
	ErrProviderField    = "provider response missing field"
	ErrTimeParse        = "unable to parse time of day"
	ErrInvalidURL       = "invalid URL structure"
	ErrProtocol         = "unsupported protocol scheme (http/https only)"
	ErrICalEncode       = "failed to encode iCalendar data"
	ErrServerStartup    = "server startup failed"
	ErrServerShutdown   = "server shutdown failed"
	ErrPortRequired     = "server port is required"
	ErrWriteResp        = "failed to write response body"
	ErrLogFile          = "failed to open log file"
	ErrCacheDir         = "could not determine user cache dir"
	ErrCreateDir        = "could not create app cache dir"
	ErrAppFailed        = "application failed unexpectedly"
	ErrStoreOpen        = "failed to open prayer store"
	ErrStoreRead        = "failed to read store region"
	ErrStoreWrite       = "failed to write store region"
	ErrMigrations       = "failed to run store migrations"
	ErrSettingsRead     = "failed to read settings file"
	ErrSettingsParse    = "failed to parse settings file"
	ErrSettingsSchool   = "school must be 0 or 1"
	ErrWatcher          = "failed to start settings watcher"
	ErrMQTTConnect      = "failed to connect to MQTT broker"
	ErrMQTTPublish      = "failed to publish widget state"
	ErrLocalesAccess    = "failed to access embedded locales"
	ErrLocaleLoad       = "failed to load locale file"
	ErrTrayNotSupported = "system tray not supported on this platform/driver"
	ErrCoordsParse      = "stored coordinates are malformed"
	ErrSchedulerCreate  = "failed to create wake scheduler"
	ErrCoordsSave       = "failed to save coordinates to keyring"
	ErrPragmas          = "failed to apply sqlite pragmas"
	ErrUnknownPrayer    = "unknown prayer"
	ErrUnknownKey       = "unknown key"
	ErrMQTTTimeout      = "publish timed out"
)

// -----------------------------------------------------------------------------
// HTTP Server Responses
// -----------------------------------------------------------------------------

const (
	HTTPMsgInitializing = "Prayer times initializing, please try again shortly."
	HTTPMsgMethodNotAll = "Method Not Allowed"
)

// -----------------------------------------------------------------------------
// Log Messages
// -----------------------------------------------------------------------------

const (
	MsgAppStarting      = "Starting application"
	MsgAppStop          = "Application stopped gracefully"
	MsgCtxCancel        = "Context cancelled, shutting down"
	MsgEnvSkipped       = "No .env file loaded"
	MsgSyncStarted      = "Prayer cache sync started"
	MsgSyncSuccess      = "Prayer cache synchronized"
	MsgSyncFailed       = "Prayer cache sync failed"
	MsgFetchDay         = "Fetching prayer day"
	MsgFetchFailed      = "Provider fetch failed"
	MsgRetryOpened      = "Retry window opened"
	MsgRetryExpired     = "Retry window expired, falling back to midnight sync"
	MsgCacheInvalidated = "Prayer cache invalidated after location change"
	MsgCycleStart       = "Refresh cycle started"
	MsgCycleDone        = "Refresh cycle finished"
	MsgNoLocation       = "No location configured"
	MsgStaleFallback    = "Rendering last known state"
	MsgNoFallback       = "No cached or last known state available"
	MsgNotifyFired      = "Prayer notification emitted"
	MsgNotifyFailed     = "Prayer notification failed"
	MsgRenderFailed     = "Render surface failed"
	MsgStoreFailed      = "Store operation failed"
	MsgWakeArmed        = "Wake-up armed"
	MsgWakeFallback     = "Exact wake refused, using best-effort timer"
	MsgWakeCancelled    = "Wake-up cancelled"
	MsgWakeFired        = "Wake-up fired"
	MsgWakeArmFailed    = "Failed to arm wake-up"
	MsgResumeDetected   = "Wall clock jump detected"
	MsgWorkerStart      = "Refresh worker started"
	MsgWorkerStop       = "Refresh worker stopping due to context cancellation"
	MsgTriggerReceived  = "Refresh trigger received"
	MsgHalted           = "Refresh scheduling halted"
	MsgResumed          = "Refresh scheduling resumed"
	MsgServerListen     = "HTTP server listening"
	MsgServerStop       = "Shutting down HTTP server..."
	MsgCalendarUpdated  = "Calendar feed updated"
	MsgSettingsReload   = "Settings file reloaded"
	MsgSettingsEvent    = "Settings file event"
	MsgWatcherError     = "Settings watcher error"
	MsgMQTTConnected    = "Connected to MQTT broker"
	MsgMQTTLost         = "MQTT connection lost"
	MsgRender           = "Widget state rendered"
	MsgLocaleSkip       = "Skipping non-locale file"
	MsgLocaleBadName    = "Skipping malformed locale filename"
	MsgLocaleLoaded     = "Locale loaded successfully"
	MsgTransMissing     = "Missing translation key"
	MsgCoordsMissing    = "Coordinates not found in keyring"
	MsgGateOpened       = "Notification gate opened"
	MsgStoreOpened      = "Store opened"
	MsgWakeStart        = "Starting wake scheduler"
	MsgWakeStop         = "Stopping wake scheduler"
	MsgSettingsOpen     = "Opening settings window"
	MsgSettingsFocus    = "Settings window already open, requesting focus"
	MsgSettingsSaving   = "Saving preferences"
	MsgLogWarning       = "Warning: %s at %s: %v\n"
)

// -----------------------------------------------------------------------------
// Structured Logging Keys (slog)
// -----------------------------------------------------------------------------

const (
	LogKeyComponent = "component"
	LogKeyError     = "error"
	LogKeyURL       = "url"
	LogKeyStatus    = "status_code"
	LogKeyFile      = "file"
	LogKeyLang      = "lang"
	LogKeyKey       = "key"
	LogKeyPort      = "port"
	LogKeyDate      = "date"
	LogKeyPrayer    = "prayer"
	LogKeyNext      = "next"
	LogKeyBoundary  = "boundary"
	LogKeyCountdown = "countdown"
	LogKeyOutcome   = "outcome"
	LogKeyCycle     = "cycle_id"
	LogKeyChannel   = "channel"
	LogKeyAt        = "at"
	LogKeyUntil     = "retry_until"
	LogKeyTrigger   = "trigger"
	LogKeyLocation  = "location"
	LogKeyDays      = "days"
	LogKeyDrift     = "drift"
	LogKeyTopic     = "topic"
	LogKeyBroker    = "broker"
	LogKeyPath      = "path"
	LogKeyOp        = "op"
	LogKeyRegion    = "region"
	LogKeySizeBytes = "size_bytes"
	LogKeyETag      = "etag"
	LogKeyDuration  = "duration_ms"

	// Startup Info Keys
	LogKeyBuild   = "build"
	LogKeyApp     = "app"
	LogKeyVersion = "version"
	LogKeyGoVer   = "go_version"
	LogKeyCommit  = "commit"
	LogKeyBuilt   = "built"
	LogKeyEnv     = "env"
	LogKeyOS      = "os"
	LogKeyArch    = "arch"
	LogKeyPID     = "pid"
	LogKeyMode    = "mode"
)

// -----------------------------------------------------------------------------
// Log Components
// -----------------------------------------------------------------------------

const (
	CompUI       = "ui"
	CompUISet    = "ui_settings"
	CompEngine   = "engine"
	CompCache    = "cache"
	CompProvider = "provider"
	CompGate     = "gate"
	CompWake     = "wake"
	CompStore    = "store"
	CompServer   = "server"
	CompSettings = "settings"
	CompPublish  = "publish"
	CompWorker   = "worker"
	CompMain     = "main"
	CompI18n     = "i18n"

	ModeTray     = "tray"
	ModeHeadless = "headless"
)
