package event

import "github.com/itsneelabh/evel/core"

// Measurement is a measurementsForVfScaling event.
type Measurement struct {
	header Header

	concurrentSessions int
	configuredEntities int
	meanRequestLatency float64
	interval           float64
	memoryConfigured   float64
	memoryUsed         float64
	requestRate        int

	aggregateCPUUsage optional[float64]
	mediaPortsInUse   optional[int]
	vnfcScalingMetric optional[float64]

	cpuUsage     []cpuUse
	fsysUsage    []filesystemUse
	latency      []latencyBucket
	vnicUsage    []vnicUse
	featureUsage []featureUse
	codecUsage   []codecUse
	groups       measurementGroups
}

type cpuUse struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

type filesystemUse struct {
	BlockConfigured     float64 `json:"blockConfigured"`
	BlockIops           int     `json:"blockIops"`
	BlockUsed           float64 `json:"blockUsed"`
	EphemeralConfigured float64 `json:"ephemeralConfigured"`
	EphemeralIops       int     `json:"ephemeralIops"`
	EphemeralUsed       float64 `json:"ephemeralUsed"`
	VMIdentifier        string  `json:"vmIdentifier"`
}

type latencyBucket struct {
	LowEnd  float64 `json:"lowEndOfLatencyBucket"`
	HighEnd float64 `json:"highEndOfLatencyBucket"`
	Count   int     `json:"countsInTheBucket"`
}

type vnicUse struct {
	BroadcastPacketsIn  int    `json:"broadcastPacketsIn"`
	BroadcastPacketsOut int    `json:"broadcastPacketsOut"`
	BytesIn             int    `json:"bytesIn"`
	BytesOut            int    `json:"bytesOut"`
	MulticastPacketsIn  int    `json:"multicastPacketsIn"`
	MulticastPacketsOut int    `json:"multicastPacketsOut"`
	UnicastPacketsIn    int    `json:"unicastPacketsIn"`
	UnicastPacketsOut   int    `json:"unicastPacketsOut"`
	VNicIdentifier      string `json:"vNicIdentifier"`
}

type featureUse struct {
	FeatureIdentifier  string  `json:"featureIdentifier"`
	FeatureUtilization float64 `json:"featureUtilization"`
}

type codecUse struct {
	CodecIdentifier  string `json:"codecIdentifier"`
	CodecUtilization int    `json:"codecUtilization"`
}

// VNICUse carries per-interface packet and byte counters.
type VNICUse struct {
	ID                  string
	BroadcastPacketsIn  int
	BroadcastPacketsOut int
	BytesIn             int
	BytesOut            int
	MulticastPacketsIn  int
	MulticastPacketsOut int
	UnicastPacketsIn    int
	UnicastPacketsOut   int
}

// FilesystemUse carries per-VM block and ephemeral storage figures.
type FilesystemUse struct {
	VMID                string
	BlockConfigured     float64
	BlockUsed           float64
	BlockIops           int
	EphemeralConfigured float64
	EphemeralUsed       float64
	EphemeralIops       int
}

// NewMeasurement creates a scaling measurement with its mandatory fields.
func (f *Factory) NewMeasurement(concurrentSessions, configuredEntities int,
	meanRequestLatency, measurementInterval, memoryConfigured, memoryUsed float64,
	requestRate int) *Measurement {
	return &Measurement{
		header:             newHeader(f, DomainMeasurement),
		concurrentSessions: concurrentSessions,
		configuredEntities: configuredEntities,
		meanRequestLatency: meanRequestLatency,
		interval:           measurementInterval,
		memoryConfigured:   memoryConfigured,
		memoryUsed:         memoryUsed,
		requestRate:        requestRate,
	}
}

// Header returns the common header.
func (m *Measurement) Header() *Header {
	if m == nil {
		return nil
	}
	return &m.header
}

// SetEventType sets the event type once.
func (m *Measurement) SetEventType(eventType string) {
	m.header.SetEventType(eventType)
}

// SetAggregateCPUUse sets aggregateCpuUsage once.
func (m *Measurement) SetAggregateCPUUse(usage float64) {
	if rejectNegative(m.header.logger, "aggregateCpuUsage", usage) {
		return
	}
	m.aggregateCPUUsage.assign(usage, "aggregateCpuUsage", m.header.logger)
}

// SetMediaPortsInUse sets numberOfMediaPortsInUse once.
func (m *Measurement) SetMediaPortsInUse(ports int) {
	if rejectNegative(m.header.logger, "numberOfMediaPortsInUse", float64(ports)) {
		return
	}
	m.mediaPortsInUse.assign(ports, "numberOfMediaPortsInUse", m.header.logger)
}

// SetVNFCScalingMetric sets vnfcScalingMetric once.
func (m *Measurement) SetVNFCScalingMetric(metric float64) {
	if rejectNegative(m.header.logger, "vnfcScalingMetric", metric) {
		return
	}
	m.vnfcScalingMetric.assign(metric, "vnfcScalingMetric", m.header.logger)
}

// AddCPUUse appends a named CPU usage figure.
func (m *Measurement) AddCPUUse(name string, usage float64) {
	if rejectNegative(m.header.logger, "cpuUsageArray.value", usage) {
		return
	}
	m.cpuUsage = append(m.cpuUsage, cpuUse{Name: name, Value: usage})
}

// AddFilesystemUse appends a filesystem usage entry.
func (m *Measurement) AddFilesystemUse(u FilesystemUse) {
	for _, v := range []float64{u.BlockConfigured, u.BlockUsed, float64(u.BlockIops),
		u.EphemeralConfigured, u.EphemeralUsed, float64(u.EphemeralIops)} {
		if rejectNegative(m.header.logger, "filesystemUsageArray", v) {
			return
		}
	}
	m.fsysUsage = append(m.fsysUsage, filesystemUse{
		BlockConfigured:     u.BlockConfigured,
		BlockIops:           u.BlockIops,
		BlockUsed:           u.BlockUsed,
		EphemeralConfigured: u.EphemeralConfigured,
		EphemeralIops:       u.EphemeralIops,
		EphemeralUsed:       u.EphemeralUsed,
		VMIdentifier:        u.VMID,
	})
}

// AddLatencyBucket appends a latency distribution bucket.
func (m *Measurement) AddLatencyBucket(lowEnd, highEnd float64, count int) {
	for _, v := range []float64{lowEnd, highEnd, float64(count)} {
		if rejectNegative(m.header.logger, "latencyBucketMeasure", v) {
			return
		}
	}
	m.latency = append(m.latency, latencyBucket{LowEnd: lowEnd, HighEnd: highEnd, Count: count})
}

// AddVNICUse appends a vNIC usage entry.
func (m *Measurement) AddVNICUse(u VNICUse) {
	for _, v := range []int{u.BroadcastPacketsIn, u.BroadcastPacketsOut, u.BytesIn, u.BytesOut,
		u.MulticastPacketsIn, u.MulticastPacketsOut, u.UnicastPacketsIn, u.UnicastPacketsOut} {
		if rejectNegative(m.header.logger, "vNicUsageArray", float64(v)) {
			return
		}
	}
	m.vnicUsage = append(m.vnicUsage, vnicUse{
		BroadcastPacketsIn:  u.BroadcastPacketsIn,
		BroadcastPacketsOut: u.BroadcastPacketsOut,
		BytesIn:             u.BytesIn,
		BytesOut:            u.BytesOut,
		MulticastPacketsIn:  u.MulticastPacketsIn,
		MulticastPacketsOut: u.MulticastPacketsOut,
		UnicastPacketsIn:    u.UnicastPacketsIn,
		UnicastPacketsOut:   u.UnicastPacketsOut,
		VNicIdentifier:      u.ID,
	})
}

// AddFeatureUse appends a feature utilization figure.
func (m *Measurement) AddFeatureUse(feature string, utilization float64) {
	if rejectNegative(m.header.logger, "featureUsageArray", utilization) {
		return
	}
	m.featureUsage = append(m.featureUsage, featureUse{FeatureIdentifier: feature, FeatureUtilization: utilization})
}

// AddCodecUse appends a codec utilization figure.
func (m *Measurement) AddCodecUse(codec string, utilization int) {
	if rejectNegative(m.header.logger, "codecsInUse", float64(utilization)) {
		return
	}
	m.codecUsage = append(m.codecUsage, codecUse{CodecIdentifier: codec, CodecUtilization: utilization})
}

// AddCustomMeasurement appends name/value to the named group, creating the
// group on first use.
func (m *Measurement) AddCustomMeasurement(group, name, value string) {
	m.groups.add(group, name, value)
}

type measurementJSON struct {
	AdditionalMeasurements   []measurementGroup `json:"additionalMeasurements,omitempty"`
	AggregateCPUUsage        *float64           `json:"aggregateCpuUsage,omitempty"`
	CodecsInUse              []codecUse         `json:"codecsInUse,omitempty"`
	ConcurrentSessions       int                `json:"concurrentSessions"`
	ConfiguredEntities       int                `json:"configuredEntities"`
	CPUUsageArray            []cpuUse           `json:"cpuUsageArray,omitempty"`
	FeatureUsageArray        []featureUse       `json:"featureUsageArray,omitempty"`
	FilesystemUsageArray     []filesystemUse    `json:"filesystemUsageArray,omitempty"`
	LatencyBucketMeasure     []latencyBucket    `json:"latencyBucketMeasure,omitempty"`
	MeanRequestLatency       float64            `json:"meanRequestLatency"`
	MeasurementFieldsVersion int                `json:"measurementFieldsVersion"`
	MeasurementInterval      float64            `json:"measurementInterval"`
	MemoryConfigured         float64            `json:"memoryConfigured"`
	MemoryUsed               float64            `json:"memoryUsed"`
	NumberOfMediaPortsInUse  *int               `json:"numberOfMediaPortsInUse,omitempty"`
	RequestRate              int                `json:"requestRate"`
	VNFCScalingMetric        *float64           `json:"vnfcScalingMetric,omitempty"`
	VNicUsageArray           []vnicUse          `json:"vNicUsageArray,omitempty"`
}

// MarshalJSON renders the wire envelope with a measurementsForVfScaling block.
func (m *Measurement) MarshalJSON() ([]byte, error) {
	return envelope(&m.header, "measurementsForVfScaling", measurementJSON{
		AdditionalMeasurements:   m.groups.list,
		AggregateCPUUsage:        m.aggregateCPUUsage.ptr(),
		CodecsInUse:              m.codecUsage,
		ConcurrentSessions:       m.concurrentSessions,
		ConfiguredEntities:       m.configuredEntities,
		CPUUsageArray:            m.cpuUsage,
		FeatureUsageArray:        m.featureUsage,
		FilesystemUsageArray:     m.fsysUsage,
		LatencyBucketMeasure:     m.latency,
		MeanRequestLatency:       m.meanRequestLatency,
		MeasurementFieldsVersion: APIVersion,
		MeasurementInterval:      m.interval,
		MemoryConfigured:         m.memoryConfigured,
		MemoryUsed:               m.memoryUsed,
		NumberOfMediaPortsInUse:  m.mediaPortsInUse.ptr(),
		RequestRate:              m.requestRate,
		VNFCScalingMetric:        m.vnfcScalingMetric.ptr(),
		VNicUsageArray:           m.vnicUsage,
	})
}

// measurementGroups keeps additionalMeasurements in first-use order.
type measurementGroups struct {
	list []measurementGroup
}

type measurementGroup struct {
	Name         string      `json:"name"`
	Measurements []nameValue `json:"measurements"`
}

func (g *measurementGroups) add(group, name, value string) {
	for i := range g.list {
		if g.list[i].Name == group {
			g.list[i].Measurements = append(g.list[i].Measurements, nameValue{Name: name, Value: value})
			return
		}
	}
	g.list = append(g.list, measurementGroup{
		Name:         group,
		Measurements: []nameValue{{Name: name, Value: value}},
	})
}

func rejectNegative(logger core.Logger, field string, v float64) bool {
	if v >= 0 {
		return false
	}
	logger.Warn("Ignoring negative measurement value", map[string]interface{}{
		"field": field,
		"value": v,
	})
	return true
}
