package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"lsmkv/bootstrap"
	"lsmkv/internal/application/service"
	"lsmkv/internal/platform/repository/lsm_tree"
)

func main() {
	flag.Parse()

	container, err := bootstrap.Container()
	if err != nil {
		fmt.Fprintln(os.Stderr, "bootstrap:", err)
		os.Exit(1)
	}

	err = container.Invoke(func(
		engine *lsm_tree.Engine,
		save *service.SaveEntryService,
		get *service.GetEntryService,
		del *service.DeleteEntryService,
	) {
		defer engine.Close()
		repl(save, get, del)
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "bootstrap:", err)
		os.Exit(1)
	}
}

// repl runs a minimal command loop over stdin: "set <key> <value>",
// "get <key>", "rm <key>", "quit".
func repl(save *service.SaveEntryService, get *service.GetEntryService, del *service.DeleteEntryService) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "set":
			if len(fields) < 3 {
				fmt.Println("usage: set <key> <value>")
				continue
			}
			key := fields[1]
			value := strings.Join(fields[2:], " ")
			save.Execute(service.SaveEntryCommand{Key: []byte(key), Value: []byte(value)})
			fmt.Println("ok")

		case "get":
			if len(fields) != 2 {
				fmt.Println("usage: get <key>")
				continue
			}
			result := get.Execute(service.GetEntryQuery{Key: []byte(fields[1])})
			if !result.Found {
				fmt.Println("not found")
				continue
			}
			fmt.Println(string(result.Entry.Value()))

		case "rm":
			if len(fields) != 2 {
				fmt.Println("usage: rm <key>")
				continue
			}
			result := del.Execute(service.DeleteEntryCommand{Key: []byte(fields[1])})
			if result.Err != nil {
				fmt.Println(result.Err)
				continue
			}
			fmt.Println("ok")

		case "quit", "exit":
			return

		default:
			fmt.Println("unknown command:", fields[0])
		}
	}
}
