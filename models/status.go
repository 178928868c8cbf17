package models

// TabStatus is one page handle's snapshot inside a pool status report.
type TabStatus struct {
	TabIndex        int    `json:"tabIndex"`
	Busy            bool   `json:"busy"`
	Warmed          bool   `json:"warmed"`
	LastAcquireAtMs int64  `json:"lastAcquireAtMs,omitempty"`
	LastReleaseAtMs int64  `json:"lastReleaseAtMs,omitempty"`
	LastURL         string `json:"lastUrl,omitempty"`
	LastError       string `json:"lastError,omitempty"`
}

// BrowserStatus is one browser instance's snapshot.
type BrowserStatus struct {
	BrowserIndex int         `json:"browserIndex"`
	BusyCount    int         `json:"busyCount"`
	TabsCount    int         `json:"tabsCount"`
	Tabs         []TabStatus `json:"tabs"`
}

// PoolStatus is a point-in-time view of the browser pool used by the
// operational status endpoint. Counts may be stale by the time the
// caller reads them; they are never used for scheduling decisions.
type PoolStatus struct {
	Initialized bool            `json:"initialized"`
	Key         string          `json:"key,omitempty"`
	Headless    bool            `json:"headless"`
	TargetHome  string          `json:"targetHome,omitempty"`
	TotalTabs   int             `json:"totalTabs"`
	TotalBusy   int             `json:"totalBusy"`
	TotalFree   int             `json:"totalFree"`
	Waiters     int             `json:"waiters"`
	Browsers    []BrowserStatus `json:"browsers"`
}
