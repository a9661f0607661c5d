package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sandeepkv93/focusd/internal/model"
)

type Type string

const (
	TypeAdd    Type = "add"
	TypeDone   Type = "done"
	TypeSnooze Type = "snooze"
	TypeEdit   Type = "edit"
	TypeDelete Type = "delete"
	TypeLevel  Type = "level"
)

type ErrorCode string

const (
	ErrCodeEmptyInput      ErrorCode = "empty_input"
	ErrCodeUnknownCommand  ErrorCode = "unknown_command"
	ErrCodeInvalidArgument ErrorCode = "invalid_argument"
	ErrCodeHandlerMissing  ErrorCode = "handler_missing"
)

type CommandError struct {
	Code    ErrorCode
	Message string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func invalid(format string, args ...any) error {
	return &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

type AddArgs struct {
	Priority  model.Priority
	Intervals []int
	Title     string
}

type DoneArgs struct {
	Target string
}

type SnoozeArgs struct {
	Target        string
	IntervalIndex int
}

// EditField names the task attribute an edit command changes.
type EditField string

const (
	FieldTitle     EditField = "title"
	FieldPriority  EditField = "priority"
	FieldIntervals EditField = "intervals"
	FieldDuration  EditField = "duration"
	FieldSubtasks  EditField = "subtasks"
)

type EditArgs struct {
	Target string
	Field  EditField
	Value  string
}

type DeleteArgs struct {
	Target string
}

type Command struct {
	Type   Type
	Raw    string
	Add    *AddArgs
	Done   *DoneArgs
	Snooze *SnoozeArgs
	Edit   *EditArgs
	Delete *DeleteArgs
}

func Parse(input string) (Command, error) {
	raw := strings.TrimSpace(input)
	if raw == "" {
		return Command{}, &CommandError{Code: ErrCodeEmptyInput, Message: "command is empty"}
	}
	if strings.HasPrefix(raw, "/") {
		raw = strings.TrimSpace(strings.TrimPrefix(raw, "/"))
	}
	if raw == "" {
		return Command{}, &CommandError{Code: ErrCodeEmptyInput, Message: "command is empty"}
	}

	parts := strings.Fields(raw)
	head := strings.ToLower(parts[0])
	args := parts[1:]

	switch Type(head) {
	case TypeAdd:
		return parseAdd(input, args)
	case TypeDone:
		if len(args) != 1 {
			return Command{}, invalid("done requires a task id")
		}
		return Command{Type: TypeDone, Raw: input, Done: &DoneArgs{Target: args[0]}}, nil
	case TypeSnooze:
		return parseSnooze(input, args)
	case TypeEdit:
		return parseEdit(input, args)
	case TypeDelete:
		if len(args) != 1 {
			return Command{}, invalid("delete requires a task id")
		}
		return Command{Type: TypeDelete, Raw: input, Delete: &DeleteArgs{Target: args[0]}}, nil
	case TypeLevel:
		return Command{Type: TypeLevel, Raw: input}, nil
	default:
		return Command{}, &CommandError{Code: ErrCodeUnknownCommand, Message: fmt.Sprintf("unsupported command: %s", head)}
	}
}

// parseAdd reads "add <priority> <minutes,...> <title...>".
func parseAdd(raw string, args []string) (Command, error) {
	if len(args) < 3 {
		return Command{}, invalid("usage: add <priority> <minutes,...> <title>")
	}
	priority, err := model.ParsePriority(args[0])
	if err != nil {
		return Command{}, invalid("unknown priority %q", args[0])
	}
	intervals, err := ParseIntervals(args[1])
	if err != nil {
		return Command{}, err
	}
	title := strings.TrimSpace(strings.Join(args[2:], " "))
	if title == "" {
		return Command{}, invalid("add requires a title")
	}
	return Command{Type: TypeAdd, Raw: raw, Add: &AddArgs{Priority: priority, Intervals: intervals, Title: title}}, nil
}

func parseSnooze(raw string, args []string) (Command, error) {
	if len(args) == 0 || len(args) > 2 {
		return Command{}, invalid("usage: snooze <id> [interval-index]")
	}
	index := 0
	if len(args) == 2 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n < 0 {
			return Command{}, invalid("interval index must be a non-negative number, got %q", args[1])
		}
		index = n
	}
	return Command{Type: TypeSnooze, Raw: raw, Snooze: &SnoozeArgs{Target: args[0], IntervalIndex: index}}, nil
}

// parseEdit reads "edit <id> <field>=<value>"; the value may contain spaces.
func parseEdit(raw string, args []string) (Command, error) {
	if len(args) < 2 {
		return Command{}, invalid("usage: edit <id> <field>=<value>")
	}
	assignment := strings.Join(args[1:], " ")
	key, value, ok := strings.Cut(assignment, "=")
	if !ok {
		return Command{}, invalid("edit expects <field>=<value>, got %q", assignment)
	}
	field := EditField(strings.ToLower(strings.TrimSpace(key)))
	switch field {
	case FieldTitle, FieldPriority, FieldIntervals, FieldDuration, FieldSubtasks:
	default:
		return Command{}, invalid("unknown field %q", key)
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return Command{}, invalid("edit %s requires a value", field)
	}
	return Command{Type: TypeEdit, Raw: raw, Edit: &EditArgs{Target: args[0], Field: field, Value: value}}, nil
}

// ParseIntervals reads a comma separated minute list such as "5,15".
func ParseIntervals(raw string) ([]int, error) {
	parts := strings.Split(raw, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(p), "m"))
		if p == "" {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, invalid("bad interval %q", p)
		}
		out = append(out, n)
	}
	if err := model.ValidateIntervals(out); err != nil {
		return nil, invalid("%v", err)
	}
	return out, nil
}
