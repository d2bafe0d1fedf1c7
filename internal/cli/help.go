package cli

import "fmt"

func PrintExtendedHelp() {
	fmt.Fprintf(out, `Medreminder %s - medication entry and daily reminders

Usage:
  medreminder [--config file] [--data dir] <command> [args]

Commands:
  serve                 Run the API server and the reminder dispatcher (default)
  form                  Open the entry screen in the terminal
  login <user-id>       Sign in as a user
  logout                Sign out
  whoami                Show the signed-in user
  reminders [list]      List your reminders
  reminders cancel <id> Cancel a reminder
  next <HH:MM>          Show when a reminder at HH:MM would first fire
  config <cmd>          Inspect configuration
  deliverers status     Show notification deliverers
  status                Show configuration summary
  doctor                Run diagnostics
  version               Show version

`, Version)
}

func PrintConfigHelp() {
	fmt.Fprintln(out, `Usage: medreminder config <command>

Commands:
  path         Print the config file location
  show         Print the config file
  get <key>    Print one setting`)
}

func PrintRemindersHelp() {
	fmt.Fprintln(out, `Usage: medreminder reminders <command>

Commands:
  list         List your reminders
  cancel <id>  Cancel a reminder`)
}

func PrintDeliverersHelp() {
	fmt.Fprintln(out, `Usage: medreminder deliverers status

Deliverers are set with notify.deliverers (log, webhook, telegram, discord).`)
}
