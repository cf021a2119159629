package app

import (
	"fmt"
	"io"
	"net"

	"github.com/spf13/cobra"

	"github.com/momentics/hioload-nio/client"
	"github.com/momentics/hioload-nio/server"
)

func (rt *env) serverOptions() []server.Option {
	return append(server.FromConfig(rt.config()),
		server.WithPool(rt.pool),
		server.WithMetrics(rt.metrics),
	)
}

func printMessage(w io.Writer) server.MessageHandler {
	return func(from net.Addr, msg []byte) {
		fmt.Fprintf(w, "[%v] %s\n", from, msg)
	}
}

func newUploadServerCommand(rt *env) *cobra.Command {
	c := rt.opts.Config
	workers := 1
	cmd := &cobra.Command{
		Use:   "upload-server",
		Short: "Accept file uploads with blocking channels",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := rt.config()
			out := cmd.OutOrStdout()
			srv, err := server.NewUploadServer(cfg.ListenAddr, cfg.UploadDir, func(r server.UploadResult) {
				fmt.Fprintf(out, "stored %d bytes from %v in %s\n", r.Bytes, r.Remote, r.Path)
			}, append(rt.serverOptions(), server.WithWorkers(workers))...)
			if err != nil {
				return err
			}
			return srv.Serve(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&c.UploadDir, "dir", c.UploadDir, "Directory receiving uploads.")
	cmd.Flags().BoolVar(&c.Ack, "ack", c.Ack, "Acknowledge every upload.")
	cmd.Flags().IntVar(&workers, "workers", workers, "Uploads handled concurrently.")
	return cmd
}

func newUploadClientCommand(rt *env) *cobra.Command {
	c := rt.opts.Config
	cmd := &cobra.Command{
		Use:   "upload-client FILE",
		Short: "Upload a file to the upload server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := rt.config()
			res, err := client.Upload(cmd.Context(), cfg.ListenAddr, args[0], client.UploadOptions{
				WaitAck:    cfg.Ack,
				BufferSize: cfg.BufferSize,
				Pool:       rt.pool,
				Metrics:    rt.metrics,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sent %d bytes\n", res.Bytes)
			if res.Ack != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "server: %s\n", res.Ack)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&c.Ack, "ack", c.Ack, "Wait for the server acknowledgement.")
	return cmd
}

func newChatServerCommand(rt *env) *cobra.Command {
	return &cobra.Command{
		Use:   "chat-server",
		Short: "Run the selector-based chat server",
		RunE: func(cmd *cobra.Command, args []string) error {
			srv, err := server.NewChatServer(rt.config().ListenAddr, printMessage(cmd.OutOrStdout()), rt.serverOptions()...)
			if err != nil {
				return err
			}
			return srv.Serve(cmd.Context())
		},
	}
}

func newChatClientCommand(rt *env) *cobra.Command {
	c := rt.opts.Config
	cmd := &cobra.Command{
		Use:   "chat-client",
		Short: "Send lines from standard input to the chat server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := rt.config()
			cli, err := client.DialChat(client.ChatConfig{
				Addr:       cfg.ListenAddr,
				Nickname:   cfg.Nickname,
				BufferSize: cfg.BufferSize,
				Metrics:    rt.metrics,
			})
			if err != nil {
				return err
			}
			defer cli.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "chatting as %s, type %q to leave\n", cfg.Nickname, client.QuitCommand)
			return cli.Run(cmd.Context(), cmd.InOrStdin())
		},
	}
	cmd.Flags().StringVar(&c.Nickname, "nick", c.Nickname, "Nickname shown with every message.")
	return cmd
}

func newDatagramReceiverCommand(rt *env) *cobra.Command {
	return &cobra.Command{
		Use:   "udp-recv",
		Short: "Print datagrams received on the datagram address",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := server.NewDatagramReceiver(rt.config().DatagramAddr, printMessage(cmd.OutOrStdout()), rt.serverOptions()...)
			if err != nil {
				return err
			}
			return r.Serve(cmd.Context())
		},
	}
}

func newDatagramSenderCommand(rt *env) *cobra.Command {
	c := rt.opts.Config
	cmd := &cobra.Command{
		Use:   "udp-send",
		Short: "Send every word from standard input as a datagram",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := rt.config()
			s, err := client.NewDatagramSender(client.ChatConfig{
				Addr:       cfg.DatagramAddr,
				Nickname:   cfg.Nickname,
				BufferSize: cfg.BufferSize,
				Metrics:    rt.metrics,
			})
			if err != nil {
				return err
			}
			defer s.Close()
			return s.Run(cmd.Context(), cmd.InOrStdin())
		},
	}
	cmd.Flags().StringVar(&c.Nickname, "nick", c.Nickname, "Nickname shown with every message.")
	return cmd
}
