package telemetry

import (
	"time"

	"github.com/tidwall/gjson"
)

// CommandMeasurementIntervalChange asks the client to change how often it
// reports measurements.
const CommandMeasurementIntervalChange = "measurementIntervalChange"

// CollectorCommand is one entry of a collector's commandList.
type CollectorCommand struct {
	Type                string
	MeasurementInterval time.Duration
}

// ParseCommands extracts commands from a collector response body.
//
// Both {"commandList":[{"command":{...}}]} and the flat
// {"commandList":[{...}]} layouts are accepted. Anything unparseable yields
// no commands.
func ParseCommands(body []byte) []CollectorCommand {
	if len(body) == 0 || !gjson.ValidBytes(body) {
		return nil
	}
	list := gjson.GetBytes(body, "commandList")
	if !list.IsArray() {
		return nil
	}

	var cmds []CollectorCommand
	list.ForEach(func(_, item gjson.Result) bool {
		if nested := item.Get("command"); nested.IsObject() {
			item = nested
		}
		cmdType := item.Get("commandType").String()
		if cmdType == "" {
			return true
		}
		cmd := CollectorCommand{Type: cmdType}
		if cmdType == CommandMeasurementIntervalChange {
			secs := item.Get("measurementInterval").Int()
			if secs <= 0 {
				return true
			}
			cmd.MeasurementInterval = time.Duration(secs) * time.Second
		}
		cmds = append(cmds, cmd)
		return true
	})
	return cmds
}
