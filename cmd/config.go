package cmd

const DESCRIPTION = `
playat starts Spotify playback of a track, album, playlist or artist on
one of your Spotify Connect devices at a time you choose. It either waits
in the foreground until then or hands the job to the OS scheduler
(schtasks on Windows, at elsewhere) and exits.
`

const (
	ScheduleDescription = `Examples:
        playat --time 07:30 spotify:track:4uLU6hMCjMI75M1A2tKUQC
        playat --date 2030-01-02 --time 07:30 --device Kitchen <album link>
        playat --at 2030-01-02T07:30 --system-schedule <media>
        playat --now --type playlist 37i9dQZF1DXcBWIGoYBM5M

`
	DevicesDescription = `The devices command lists the Spotify Connect devices
the configured access token can see. Start Spotify on a
device to make it show up.

Example:
        playat devices

`
	JobsDescription = `The jobs command manages playback jobs handed to the OS
scheduler. When "playat serve" is running, the commands go
through it.

Example:
        playat jobs list
        playat jobs cancel <job id>
        playat jobs reconcile

`
	ServeDescription = `The serve command runs the web form on 127.0.0.1 and
JSON-RPC at /jsonrpc and /jsonrpc/ws. RPC callers must send
"Authorization: Bearer <token>"; see "playat token show".

Example:
        playat serve --port 5000

`
	TokenDescription = `The token command manages the secrets playat keeps in
the OS keyring.

Example:
        playat token show
        playat token set-spotify <access token>

`
)

const HELP_TEMPL = `Usage: {{if .UsageText}}{{.UsageText}}{{else}}{{.HelpName}} {{if .VisibleFlags}}[global options]{{end}}{{if .Commands}} command [command options]{{end}} {{if .ArgsUsage}}{{.ArgsUsage}}{{else}}[arguments...]{{end}}{{end}}
{{.Description}}{{if .VisibleCommands}}
Commands:{{range .VisibleCategories}}{{if .Name}}

{{.Name}}:{{range .VisibleCommands}}
  {{join .Names ", "}}{{"\t"}}{{.Usage}}{{end}}{{else}}{{range .VisibleCommands}}
{{"\t"}}{{index .Names 0}}{{"\t:\t"}}{{.Usage}}{{end}}{{end}}{{end}}{{end}}{{if .VisibleFlags}}

Schedule Flags:{{range .VisibleFlags}}
  {{.}}{{end}}{{end}}

Use "{{.HelpName}} help <command>" for more information about any command.

`

const CMD_HELP_TEMPL = `{{if .Description}}{{.Description}}{{else}}{{.HelpName}} - {{.Usage}}

{{end}}Usage:
        {{.HelpName}} {{if .UsageText}}{{.UsageText}}{{else}}[arguments...]{{end}}{{if .VisibleFlags}}

Supported Flags:{{range .VisibleFlags}}
  {{.}}{{end}}{{end}}

`
