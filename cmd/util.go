// elstream: a parallel streaming toolkit for VCF and SAM files.
// Copyright (c) 2020 imec vzw.

// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version, and Additional Terms
// (see below).

// This program is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Affero General Public License for more details.

// You should have received a copy of the GNU Affero General Public
// License and Additional Terms along with this program. If not, see
// <https://github.com/ExaScience/elstream/blob/master/LICENSE.txt>.

package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/pprof"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"github.com/exascience/elstream/internal"
	"github.com/exascience/elstream/stream"
	"github.com/exascience/elstream/utils"
)

// ProgramMessage is the first line printed when the elstream binary
// is called.
var ProgramMessage = "\n" + utils.ProgramMessage()

// HelpMessage is printed to show the --help flag
const HelpMessage = "Print command details:\n" +
	"[--help]\n"

// StreamHelp lists the flags shared by all streaming commands.
const StreamHelp = "[--nr-of-threads nr]\n" +
	"[--shutdown-timeout duration]\n" +
	"[--timed]\n" +
	"[--profile file]\n" +
	"[--log-path path]\n"

func getFilename(s, help string) string {
	switch s {
	case "-h", "--h", "-help", "--help":
		fmt.Fprint(os.Stderr, help)
		os.Exit(0)
	case "-", "/dev/stdin", "/dev/stdout":
	default:
		if strings.HasPrefix(s, "-") {
			log.Println("Filename(s) in command line missing.")
			fmt.Fprint(os.Stderr, help)
			os.Exit(1)
		}
	}
	return s
}

func parseFlags(flags *flag.FlagSet, requiredArgs int, help string) {
	if len(os.Args) < requiredArgs {
		fmt.Fprintln(os.Stderr, "Incorrect number of parameters.")
		fmt.Fprint(os.Stderr, help)
		os.Exit(1)
	}
	flags.SetOutput(io.Discard)
	if err := flags.Parse(os.Args[requiredArgs:]); err != nil {
		x := 0
		if err != flag.ErrHelp {
			fmt.Fprintln(os.Stderr, err)
			x = 1
		}
		fmt.Fprint(os.Stderr, help)
		os.Exit(x)
	}
	if flags.NArg() > 0 {
		fmt.Fprintln(os.Stderr, "Cannot parse remaining parameters:", flags.Args())
		fmt.Fprint(os.Stderr, help)
		os.Exit(1)
	}
}

func isStandardStream(filename string) bool {
	switch filename {
	case "-", "/dev/stdin", "/dev/stdout":
		return true
	default:
		return false
	}
}

func logCheckFile(parameter, format string, v ...interface{}) {
	if parameter != "" {
		log.Printf(format+" for command line parameter %v.\n", append(v, parameter)...)
	} else {
		log.Printf(format+".\n", v...)
	}
}

func checkExist(parameter, filename string) bool {
	if isStandardStream(filename) {
		return true
	}
	if len(filename) == 0 {
		logCheckFile(parameter, "Error: Missing filename")
		return false
	}
	if _, err := os.Stat(filename); err == nil {
		return true
	} else if os.IsNotExist(err) {
		logCheckFile(parameter, "Error: File %v does not exist", filename)
		return false
	} else if os.IsPermission(err) {
		logCheckFile(parameter, "Error: No permission to read file %v", filename)
		return false
	} else {
		logCheckFile(parameter, "Error %v when trying to access file %v", err, filename)
		return false
	}
}

func checkCreate(parameter, filename string) bool {
	if isStandardStream(filename) {
		return true
	}
	if len(filename) == 0 {
		logCheckFile(parameter, "Error: Missing filename")
		return false
	}
	if _, err := os.Stat(filename); err == nil {
		// Assume that the file has been written by previous runs, and can be overwritten.
		return true
	}
	err := os.MkdirAll(filepath.Dir(filename), 0700)
	if err == nil {
		err = os.WriteFile(filename, nil, 0666)
	}
	if err != nil {
		if os.IsPermission(err) {
			logCheckFile(parameter, "Error: No permission to create file %v", filename)
		} else {
			logCheckFile(parameter, "Error %v when trying to create file %v", err, filename)
		}
		return false
	}
	_ = os.Remove(filename)
	return true
}

func createLogFilename() string {
	t := time.Now()
	zone, _ := t.Zone()
	return fmt.Sprintf("logs/elstream/elstream-%d-%02d-%02d-%02d-%02d-%02d-%09d-%v.log", t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), zone)
}

// setLogOutput sends the log to a fresh log file as well as to
// stderr, and redirects stderr to the log file, so that panics end up
// in the log file too.
func setLogOutput(path string) {
	logPath := createLogFilename()
	var fullPath string
	if path == "" {
		fullPath = filepath.Join(os.Getenv("HOME"), logPath)
	} else {
		fullPath = filepath.Join(path, logPath)
	}
	internal.MkdirAll(filepath.Dir(fullPath), 0700)
	f := internal.FileCreate(fullPath)
	fmt.Fprintln(f, ProgramMessage)

	orgStderr, err := unix.Dup(2)
	if err != nil {
		log.Panic(err)
	}
	ferr := os.NewFile(uintptr(orgStderr), "/dev/stderr")
	if err := unix.Dup2(int(f.Fd()), 2); err != nil {
		log.Panic(err)
	}

	log.SetOutput(io.MultiWriter(f, ferr))
	log.Println("Created log file at", fullPath)
	log.Println("Command line:", os.Args)
}

func timedRun(timed bool, profile, msg string, phase int64, f func() error) error {
	if profile != "" {
		file := internal.FileCreate(fmt.Sprintf("%v%v.prof", profile, phase))
		defer internal.Close(file)
		if err := pprof.StartCPUProfile(file); err != nil {
			return err
		}
		defer pprof.StopCPUProfile()
	}
	if timed {
		log.Println(msg)
		start := time.Now()
		defer func() {
			log.Println("Elapsed time: ", time.Since(start))
		}()
	}
	return f()
}

// streamFlags are the flags shared by all streaming commands.
type streamFlags struct {
	nrOfThreads     int
	shutdownTimeout time.Duration
	timed           bool
	profile         string
	logPath         string
}

func (sf *streamFlags) register(flags *flag.FlagSet) {
	flags.IntVar(&sf.nrOfThreads, "nr-of-threads", 0, "number of worker threads")
	flags.DurationVar(&sf.shutdownTimeout, "shutdown-timeout", stream.DefaultShutdownTimeout, "maximum time to wait for the workers to finish")
	flags.BoolVar(&sf.timed, "timed", false, "measure the runtime")
	flags.StringVar(&sf.profile, "profile", "", "write a runtime profile to the specified file(s)")
	flags.StringVar(&sf.logPath, "log-path", "", "write log files to the specified directory")
}

func (sf *streamFlags) check() bool {
	ok := true
	if sf.nrOfThreads < 0 {
		log.Println("Error: Invalid nr-of-threads: ", sf.nrOfThreads)
		ok = false
	}
	if sf.shutdownTimeout <= 0 {
		log.Println("Error: Invalid shutdown-timeout: ", sf.shutdownTimeout)
		ok = false
	}
	if sf.profile != "" && !checkCreate("--profile", sf.profile) {
		ok = false
	}
	return ok
}

func (sf *streamFlags) appendTo(command *strings.Builder) {
	if sf.nrOfThreads > 0 {
		fmt.Fprint(command, " --nr-of-threads ", sf.nrOfThreads)
	}
	if sf.shutdownTimeout != stream.DefaultShutdownTimeout {
		fmt.Fprint(command, " --shutdown-timeout ", sf.shutdownTimeout)
	}
	if sf.timed {
		fmt.Fprint(command, " --timed")
	}
	if sf.profile != "" {
		fmt.Fprint(command, " --profile ", sf.profile)
	}
	if sf.logPath != "" {
		fmt.Fprint(command, " --log-path ", sf.logPath)
	}
}

func (sf *streamFlags) options() []stream.Option {
	options := []stream.Option{stream.WithShutdownTimeout(sf.shutdownTimeout)}
	if sf.nrOfThreads > 0 {
		options = append(options, stream.WithWorkers(sf.nrOfThreads))
	}
	return options
}

// runStream runs a single stream.Engine over reader, and cancels the
// run on an interrupt signal.
func runStream[R, A any](sf *streamFlags, processor stream.Processor[R, A], reader stream.RecordReader[R], sink stream.Sink, accumulator stream.Accumulator[A], options ...stream.Option) error {
	return timedRun(sf.timed, sf.profile, "Running stream.", 1, func() error {
		engine, err := stream.New(processor, sink, accumulator, append(sf.options(), options...)...)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, unix.SIGTERM)
		defer stop()
		_, err = engine.Run(ctx, reader)
		return err
	})
}

func closeOnExit(c io.Closer, err *error) {
	if nerr := c.Close(); *err == nil {
		*err = nerr
	}
}
