package main

// Options is the root command. The struct tags are interpreted by
// github.com/jessevdk/go-flags.
type Options struct {
	Build *BuildCmd `command:"build" description:"Print the SQL statement for a flight statistics request"`
	Ask   *AskCmd   `command:"ask" description:"Send one message to the assistant and print the answer"`
}
