// internal/shell/commands.go
package shell

import (
	"fmt"

	"github.com/abiosoft/ishell"
)

func printResult(c *ishell.Context, line string, err error) {
	if err != nil {
		c.Err(err)
		return
	}
	c.Println(line)
}

func requireArgs(n int, usage string, fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if len(c.Args) < n {
			c.Err(fmt.Errorf("usage: %s", usage))
			return
		}
		fn(c)
	}
}

var commands = []*ishell.Cmd{
	&ConnectCmd,
	&DisconnectCmd,
	&StatusCmd,
	&VersionCmd,
	&PressureCmd,
	&PulseCmd,
	&ReadRegisterCmd,
	&WriteRegisterCmd,
	&ReadSettingsCmd,
	&SettingsCmd,
	&SaveCmd,
	&LoadCmd,
}

var (
	// ConnectCmd powers up the device.
	ConnectCmd = ishell.Cmd{
		Name:    "connect",
		Aliases: []string{"c"},
		Help:    "power up the device",
		Func: func(c *ishell.Context) {
			if err := From(c).Connect(); err != nil {
				c.Err(err)
				return
			}
			c.Println("Connected")
		},
	}

	// DisconnectCmd releases the device.
	DisconnectCmd = ishell.Cmd{
		Name:    "disconnect",
		Aliases: []string{"d"},
		Help:    "send quit and drop the enable line",
		Func: func(c *ishell.Context) {
			if err := From(c).Disconnect(); err != nil {
				c.Err(err)
				return
			}
			c.Println("Disconnected")
		},
	}

	// StatusCmd prints the device state.
	StatusCmd = ishell.Cmd{
		Name: "status",
		Help: "show connection state",
		Func: func(c *ishell.Context) {
			info := From(c).Device.Status()
			c.Printf("%s on %s\n", info.Status, info.Port)
			if info.FirmwareVersion != nil {
				c.Println("Version : " + *info.FirmwareVersion)
			}
			if info.LastError != nil {
				c.Println("Last error : " + *info.LastError)
			}
		},
	}

	// VersionCmd prints the firmware version.
	VersionCmd = ishell.Cmd{
		Name:    "version",
		Aliases: []string{"v"},
		Func: func(c *ishell.Context) {
			line, err := From(c).Version()
			printResult(c, line, err)
		},
	}

	// PressureCmd prints the live pressure.
	PressureCmd = ishell.Cmd{
		Name:    "pressure",
		Aliases: []string{"p"},
		Func: func(c *ishell.Context) {
			line, err := From(c).Pressure()
			printResult(c, line, err)
		},
	}

	// PulseCmd prints the live pulse duration.
	PulseCmd = ishell.Cmd{
		Name:    "pulse",
		Aliases: []string{"a"},
		Func: func(c *ishell.Context) {
			line, err := From(c).PulseDuration()
			printResult(c, line, err)
		},
	}

	// ReadRegisterCmd reads one register.
	ReadRegisterCmd = ishell.Cmd{
		Name:    "read",
		Aliases: []string{"r"},
		Help:    "ADDRESS",
		Func: requireArgs(1, "read ADDRESS", func(c *ishell.Context) {
			line, err := From(c).ReadRegister(c.Args[0])
			printResult(c, line, err)
		}),
	}

	// WriteRegisterCmd writes one register.
	WriteRegisterCmd = ishell.Cmd{
		Name:    "write",
		Aliases: []string{"w"},
		Help:    "ADDRESS VALUE",
		Func: requireArgs(2, "write ADDRESS VALUE", func(c *ishell.Context) {
			printResult(c, "OK", From(c).WriteRegister(c.Args[0], c.Args[1]))
		}),
	}

	// ReadSettingsCmd reads every power level into the staging buffer.
	ReadSettingsCmd = ishell.Cmd{
		Name: "readsettings",
		Help: "read all power levels from the device",
		Func: func(c *ishell.Context) {
			settings, err := From(c).ReadSettings()
			printResult(c, FormatSettings(settings), err)
		},
	}

	// SettingsCmd prints the staging buffer.
	SettingsCmd = ishell.Cmd{
		Name: "settings",
		Help: "show staged settings",
		Func: func(c *ishell.Context) {
			c.Println(FormatSettings(From(c).Device.StagedSettings()))
		},
	}

	// SaveCmd stores the staging buffer as CSV.
	SaveCmd = ishell.Cmd{
		Name: "save",
		Help: "FILE",
		Func: requireArgs(1, "save FILE", func(c *ishell.Context) {
			printResult(c, "Saved "+c.Args[0], From(c).Device.SaveSettingsFile(c.Args[0]))
		}),
	}

	// LoadCmd writes the settings stored in a CSV file to the device.
	LoadCmd = ishell.Cmd{
		Name: "load",
		Help: "FILE",
		Func: requireArgs(1, "load FILE", func(c *ishell.Context) {
			settings, err := From(c).LoadAndWrite(c.Args[0])
			printResult(c, fmt.Sprintf("Wrote %d power levels", len(settings)), err)
		}),
	}
)
