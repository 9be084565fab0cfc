package unify

import (
	"runtime"
	"time"
)

// HiddenMask replaces hidden setting values in diagnostics.
const HiddenMask = "****"

// ContainerInfo is a diagnostic snapshot of a container.
type ContainerInfo struct {
	ID                string          `json:"id"`
	NodeID            string          `json:"nodeId"`
	DeploymentVersion string          `json:"deploymentVersion,omitempty"`
	ClusterMode       bool            `json:"clusterMode"`
	ProductionMode    bool            `json:"productionMode"`
	Started           bool            `json:"started"`
	StartTime         time.Time       `json:"startTime"`
	Uptime            time.Duration   `json:"uptime"`
	Memory            MemoryInfo      `json:"memory"`
	Interfaces        []string        `json:"interfaces,omitempty"`
	PeriodicTasks     []string        `json:"periodicTasks,omitempty"`
	Broadcasts        []string        `json:"broadcasts,omitempty"`
	Components        []ComponentInfo `json:"components"`
	TerminationError  string          `json:"terminationError,omitempty"`
}

// MemoryInfo reports Go runtime memory statistics.
type MemoryInfo struct {
	HeapAlloc  uint64 `json:"heapAlloc"`
	HeapSys    uint64 `json:"heapSys"`
	Sys        uint64 `json:"sys"`
	NumGC      uint32 `json:"numGC"`
	Goroutines int    `json:"goroutines"`
}

// ComponentInfo reports one component.
type ComponentInfo struct {
	Name         string              `json:"name"`
	Type         string              `json:"type"`
	OriginalType string              `json:"originalType"`
	Description  string              `json:"description,omitempty"`
	Lifetime     Lifetime            `json:"lifetime"`
	Instantiated bool                `json:"instantiated"`
	PassCount    int64               `json:"passCount"`
	FailCount    int64               `json:"failCount"`
	FirstPass    time.Time           `json:"firstPass,omitzero"`
	LastPass     time.Time           `json:"lastPass,omitzero"`
	FirstFail    time.Time           `json:"firstFail,omitzero"`
	LastFail     time.Time           `json:"lastFail,omitzero"`
	Settings     map[string][]string `json:"settings,omitempty"`
}

// Info returns a snapshot of the container and its components. Values of
// hidden settings are masked.
func (c *Container) Info() ContainerInfo {
	info := ContainerInfo{
		ID:        c.id,
		Started:   c.IsStarted(),
		StartTime: c.startTime,
		Memory:    memoryInfo(),
	}

	if c.config != nil {
		info.NodeID = c.config.NodeID()
		info.DeploymentVersion = c.config.DeploymentVersion()
		info.ClusterMode = c.config.ClusterMode()
		info.ProductionMode = c.config.ProductionMode()
	}

	if !c.startTime.IsZero() && info.Started {
		info.Uptime = time.Since(c.startTime)
	}

	for _, ci := range c.interfaces {
		info.Interfaces = append(info.Interfaces, ci.Context().Name())
	}
	for _, reg := range c.periodic {
		info.PeriodicTasks = append(info.PeriodicTasks, CommandName(reg.component, reg.method))
	}
	info.Broadcasts = sortedKeys(c.broadcasts)

	for _, name := range c.order {
		info.Components = append(info.Components, c.componentInfo(c.infos[name]))
	}

	c.lastShutdownMu.Lock()
	if c.lastTermination != nil {
		info.TerminationError = c.lastTermination.Error()
	}
	c.lastShutdownMu.Unlock()

	return info
}

func (c *Container) componentInfo(info *componentInfo) ComponentInfo {
	d := info.descriptor
	_, instantiated := c.singletons.Load(d.Name)

	ci := ComponentInfo{
		Name:         d.Name,
		Type:         info.typeName(),
		OriginalType: info.originalType,
		Description:  d.Description,
		Lifetime:     d.Lifetime,
		Instantiated: instantiated,
		PassCount:    info.passCount.Load(),
		FailCount:    info.failCount.Load(),
		FirstPass:    unixTime(info.firstPass.Load()),
		LastPass:     unixTime(info.lastPass.Load()),
		FirstFail:    unixTime(info.firstFail.Load()),
		LastFail:     unixTime(info.lastFail.Load()),
	}

	for _, dir := range info.directives {
		if len(dir.values) == 0 {
			continue
		}
		if ci.Settings == nil {
			ci.Settings = make(map[string][]string)
		}

		if dir.hidden {
			ci.Settings[dir.prop.Name] = []string{HiddenMask}
			continue
		}
		ci.Settings[dir.prop.Name] = append([]string(nil), dir.values...)
	}

	return ci
}

func unixTime(nanos int64) time.Time {
	if nanos == 0 {
		return time.Time{}
	}
	return time.Unix(0, nanos)
}

func memoryInfo() MemoryInfo {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return MemoryInfo{
		HeapAlloc:  ms.HeapAlloc,
		HeapSys:    ms.HeapSys,
		Sys:        ms.Sys,
		NumGC:      ms.NumGC,
		Goroutines: runtime.NumGoroutine(),
	}
}
