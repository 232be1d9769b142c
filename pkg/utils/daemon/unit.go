package daemon

import (
	"bytes"
	"text/template"
)

const (
	serviceName = "chargify.service"
	socketName  = "chargify.socket"
)

// UnitDir is where the units are written.
var UnitDir = "/etc/systemd/system"

// UnitOptions fills the unit templates.
type UnitOptions struct {
	ExePath            string
	ConfigPath         string
	SocketPath         string
	AllowNonRootAccess bool
}

var serviceTemplate = template.Must(template.New(serviceName).Parse(`[Unit]
Description=chargify battery telemetry daemon
Requires={{ .SocketUnit }}
After={{ .SocketUnit }}

[Service]
Type=notify
ExecStart={{ .ExePath }} daemon --config {{ .ConfigPath }} --daemon-socket {{ .SocketPath }}
Restart=on-failure
WatchdogSec=30
StateDirectory=chargify

[Install]
WantedBy=multi-user.target
`))

var socketTemplate = template.Must(template.New(socketName).Parse(`[Unit]
Description=chargify daemon socket

[Socket]
ListenStream={{ .SocketPath }}
FileDescriptorName=api
SocketMode={{ .SocketMode }}
RemoveOnStop=true

[Install]
WantedBy=sockets.target
`))

type unitData struct {
	UnitOptions
	SocketUnit string
	SocketMode string
}

// RenderUnits returns the service and socket unit files.
func RenderUnits(opts UnitOptions) (service, socket []byte, err error) {
	data := unitData{
		UnitOptions: opts,
		SocketUnit:  socketName,
		SocketMode:  "0600",
	}
	if opts.AllowNonRootAccess {
		data.SocketMode = "0666"
	}

	var svc, sock bytes.Buffer
	if err := serviceTemplate.Execute(&svc, data); err != nil {
		return nil, nil, err
	}
	if err := socketTemplate.Execute(&sock, data); err != nil {
		return nil, nil, err
	}
	return svc.Bytes(), sock.Bytes(), nil
}
