package fedlearnd

import "time"

var (
	logLevel    = "info"
	configPath  = ""
	mqttAddress = ""
	mqttQoS     = byte(2)
	mqttTimeout = 30 * time.Second
)
