package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wippyai/heapbind"
	"github.com/wippyai/heapbind/binding"
	"github.com/wippyai/heapbind/feature"
	"github.com/wippyai/heapbind/kind"
)

func classesCmd() *cobra.Command {
	var fields bool
	cmd := &cobra.Command{
		Use:   "classes",
		Short: "List the classes in the metadata image",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, img, err := loadImage()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tMODULE\tCLASS\tFIELDS")
			for _, c := range img.Classes() {
				fmt.Fprintf(w, "%d\t%s\t%s\t%d\n", c.ID, c.Module, c.QualifiedName(), len(c.Fields()))
				if !fields {
					continue
				}
				for _, f := range c.Fields() {
					flags := ""
					if f.Static {
						flags += " static"
					}
					if f.ReadOnly {
						flags += " readonly"
					}
					k := kind.FromWIT(f.Type)
					fmt.Fprintf(w, "\t\t  %s\t0x%x %s%s\n", f.Name, f.Offset, k, flags)
				}
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVarP(&fields, "fields", "f", false, "list each class's fields")
	return cmd
}

// fieldFlags are shared by get, set and array.
type fieldFlags struct {
	module string
	addr   string
	static bool
}

func (f *fieldFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.module, "module", "m", "", "module of the class when the name does not include [Module]")
	cmd.Flags().StringVarP(&f.addr, "addr", "a", "", "object address (decimal or 0x hex)")
	cmd.Flags().BoolVarP(&f.static, "static", "s", false, "access a static field")
}

// withField opens a session, resolves the class and field and calls fn.
func withField(cmd *cobra.Command, ff *fieldFlags, className, fieldName string,
	fn func(s *session, v fieldValue, k kind.Kind) error,
) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close(ctx)

	cls, err := s.class(className, ff.module)
	if err != nil {
		return err
	}
	d, err := cls.Field(fieldName)
	if err != nil {
		return err
	}

	var addr heapbind.Addr
	if !ff.static {
		if ff.addr == "" {
			return fmt.Errorf("--addr is required for instance field %s", fieldName)
		}
		if addr, err = parseAddr(ff.addr); err != nil {
			return err
		}
	}
	return fn(s, accessorFor(cls, ff.static, addr), d.Kind)
}

func getCmd() *cobra.Command {
	var ff fieldFlags
	cmd := &cobra.Command{
		Use:   "get CLASS FIELD",
		Short: "Read a field",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withField(cmd, &ff, args[0], args[1], func(_ *session, v fieldValue, k kind.Kind) error {
				text, err := formatField(v, args[1], k)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), text)
				return nil
			})
		},
	}
	ff.register(cmd)
	return cmd
}

func setCmd() *cobra.Command {
	var ff fieldFlags
	cmd := &cobra.Command{
		Use:   "set CLASS FIELD VALUE",
		Short: "Write a scalar or reference field",
		Long: "Write a scalar or reference field. References take an address or null " +
			"and are reported to the guest's write barrier.",
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withField(cmd, &ff, args[0], args[1], func(_ *session, v fieldValue, k kind.Kind) error {
				if err := setField(v, args[1], k, args[2]); err != nil {
					return err
				}
				log.Info("field written", zap.String("class", args[0]), zap.String("field", args[1]))
				return nil
			})
		},
	}
	ff.register(cmd)
	return cmd
}

func staticCmd() *cobra.Command {
	var module string
	cmd := &cobra.Command{
		Use:   "static CLASS FIELD [VALUE]",
		Short: "Read, or with VALUE write, a static field",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ff := fieldFlags{module: module, static: true}
			return withField(cmd, &ff, args[0], args[1], func(_ *session, v fieldValue, k kind.Kind) error {
				if len(args) == 3 {
					return setField(v, args[1], k, args[2])
				}
				text, err := formatField(v, args[1], k)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), text)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&module, "module", "m", "", "module of the class when the name does not include [Module]")
	return cmd
}

func arrayCmd() *cobra.Command {
	var ff fieldFlags
	cmd := &cobra.Command{
		Use:   "array CLASS FIELD",
		Short: "Dump the elements of an array field",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withField(cmd, &ff, args[0], args[1], func(_ *session, v fieldValue, k kind.Kind) error {
				if k.Class != kind.ClassArray {
					return fmt.Errorf("field %s is %s, not an array", args[1], k)
				}
				arr, err := v.get.GetArray(args[1])
				if err != nil {
					return err
				}
				if arr == nil {
					fmt.Fprintln(cmd.OutOrStdout(), "null")
					return nil
				}
				lines, err := dumpArray(arr)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), strings.Join(lines, "\n"))
				return nil
			})
		},
	}
	ff.register(cmd)
	return cmd
}

func dumpArray(arr *binding.Array) ([]string, error) {
	elem := arr.Elem()
	switch elem.Class {
	case kind.ClassScalar, kind.ClassRef, kind.ClassArray:
	default:
		return nil, fmt.Errorf("array of %s has no text form", elem)
	}
	n, err := arr.Len()
	if err != nil {
		return nil, err
	}
	lines := make([]string, 0, n)
	for i := 0; i < n; i++ {
		var text string
		switch elem.Class {
		case kind.ClassScalar:
			if elem.Scalar.Signed {
				var v int64
				v, err = arr.GetInt(i)
				text = fmt.Sprint(v)
			} else {
				var v uint64
				v, err = arr.GetUint(i)
				text = fmt.Sprint(v)
			}
		case kind.ClassRef:
			var ref heapbind.Addr
			ref, err = arr.GetRef(i)
			text = formatAddr(ref)
		case kind.ClassArray:
			var inner *binding.Array
			inner, err = arr.GetArray(i)
			text = "null"
			if inner != nil {
				text = formatAddr(inner.Addr())
			}
		}
		if err != nil {
			return nil, err
		}
		lines = append(lines, fmt.Sprintf("[%d] %s", i, text))
	}
	return lines, nil
}

func featuresCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "features",
		Short: "Bind the configured features and report which are enabled",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			s, err := openSession(ctx)
			if err != nil {
				return err
			}
			defer s.Close(ctx)

			set := feature.New(s.b, s.cfg.Features)
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "FEATURE\tSTATUS\tREASON")
			for _, st := range set.Statuses() {
				status, reason := "enabled", ""
				if !st.Enabled {
					status, reason = "disabled", st.Err.Error()
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", st.Name, status, reason)
			}
			return w.Flush()
		},
	}
}

func capabilitiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "capabilities [NAME...]",
		Short: "Resolve capability names to enumerator values",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if len(args) == 0 {
				args = cfg.CapabilityNames()
			}
			values := cfg.ResolveCapabilities(args)
			if len(values) < len(args) {
				fmt.Fprintf(os.Stderr, "%d of %d names did not resolve\n", len(args)-len(values), len(args))
			}
			for _, v := range values {
				fmt.Fprintln(cmd.OutOrStdout(), v)
			}
			return nil
		},
	}
}

func formatAddr(a heapbind.Addr) string {
	if a.IsNull() {
		return "null"
	}
	return fmt.Sprintf("0x%x", uint64(a))
}
