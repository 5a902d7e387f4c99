package main

import (
	"fmt"
	"io"

	"github.com/itsneelabh/evel"
	"github.com/itsneelabh/evel/event"
)

// postCycle posts one of each demo event. Failures are reported and the
// cycle carries on.
func postCycle(out io.Writer) {
	post := func(kind string, evt evel.Event) {
		if err := evel.Post(evt); err != nil {
			fmt.Fprintf(out, "   Post of %s failed %s (%s)\n", kind, evel.LastErrorCode(), evel.ErrorString())
			return
		}
		fmt.Fprintf(out, "   Processed %s\n", kind)
	}

	post("heartbeat", evel.NewHeartbeat())
	post("fault", demoFault())
	post("measurement", demoMeasurement())
	post("report", demoReport())
}

func demoFault() *event.Fault {
	fault := evel.NewFault("My alarm condition", "It broke very badly", evel.PriorityNormal, evel.SeverityMajor)
	fault.SetEventType("Bad things happen...")
	fault.SetInterface("My Interface Card")
	fault.AddAdditionalInfo("name1", "value1")
	fault.AddAdditionalInfo("name2", "value2")
	return fault
}

func demoMeasurement() *event.Measurement {
	m := evel.NewMeasurement(1, 2, 3.3, 4.4, 5.5, 6.6, 7)
	m.SetEventType("Perf management...")
	m.SetAggregateCPUUse(8.8)
	m.AddCPUUse("cpu1", 11.11)
	m.AddCPUUse("cpu2", 22.22)
	m.AddFilesystemUse(event.FilesystemUse{
		VMID: "00-11-22", BlockConfigured: 100.11, BlockUsed: 100.22, BlockIops: 33,
		EphemeralConfigured: 200.11, EphemeralUsed: 200.22, EphemeralIops: 44,
	})
	m.AddFilesystemUse(event.FilesystemUse{
		VMID: "33-44-55", BlockConfigured: 300.11, BlockUsed: 300.22, BlockIops: 55,
		EphemeralConfigured: 400.11, EphemeralUsed: 400.22, EphemeralIops: 66,
	})
	m.AddLatencyBucket(0.0, 10.0, 20)
	m.AddLatencyBucket(10.0, 20.0, 30)
	m.AddVNICUse(event.VNICUse{
		ID: "eth0", BroadcastPacketsIn: 1, BroadcastPacketsOut: 2, BytesIn: 3, BytesOut: 4,
		MulticastPacketsIn: 5, MulticastPacketsOut: 6, UnicastPacketsIn: 7, UnicastPacketsOut: 8,
	})
	m.AddVNICUse(event.VNICUse{
		ID: "eth1", BroadcastPacketsIn: 11, BroadcastPacketsOut: 12, BytesIn: 13, BytesOut: 14,
		MulticastPacketsIn: 15, MulticastPacketsOut: 16, UnicastPacketsIn: 17, UnicastPacketsOut: 18,
	})
	m.AddFeatureUse("FeatureA", 123.4)
	m.AddFeatureUse("FeatureB", 567.8)
	m.AddCodecUse("G711a", 91)
	m.AddCodecUse("G729ab", 92)
	m.SetMediaPortsInUse(1234)
	m.SetVNFCScalingMetric(1234.5678)
	m.AddCustomMeasurement("Group1", "Name1", "Value1")
	m.AddCustomMeasurement("Group2", "Name1", "Value1")
	m.AddCustomMeasurement("Group2", "Name2", "Value2")
	return m
}

func demoReport() *event.Report {
	r := evel.NewReport(1.1)
	r.SetEventType("Perf reporting...")
	r.AddFeatureUse("FeatureA", 123.4)
	r.AddFeatureUse("FeatureB", 567.8)
	r.AddCustomMeasurement("Group1", "Name1", "Value1")
	r.AddCustomMeasurement("Group2", "Name1", "Value1")
	r.AddCustomMeasurement("Group2", "Name2", "Value2")
	return r
}
