package main

import (
	"context"
	"io"
	"time"

	"go.bug.st/serial"
	"go.uber.org/zap"
)

type portOpener func(name string, mode *serial.Mode) (io.ReadCloser, error)

func openSerial(name string, mode *serial.Mode) (io.ReadCloser, error) {
	return serial.Open(name, mode)
}

type lineConsumer interface {
	Consume(ctx context.Context, r io.Reader) error
}

// serialReader keeps the reader port open, reopening it after errors until
// ctx is done.
type serialReader struct {
	port     string
	baud     int
	open     portOpener
	consumer lineConsumer
	retry    time.Duration
	logger   *zap.Logger
}

func (r *serialReader) run(ctx context.Context) error {
	mode := &serial.Mode{BaudRate: r.baud}
	for {
		port, err := r.open(r.port, mode)
		if err != nil {
			r.logger.Warn("open serial port", zap.String("port", r.port), zap.Error(err))
		} else {
			r.logger.Info("serial port opened", zap.String("port", r.port), zap.Int("baud", r.baud))
			// Closing the port unblocks a pending Read on shutdown.
			stop := context.AfterFunc(ctx, func() { _ = port.Close() })
			err = r.consumer.Consume(ctx, port)
			stop()
			_ = port.Close()
			if ctx.Err() != nil {
				return nil
			}
			r.logger.Warn("serial port closed", zap.String("port", r.port), zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(r.retry):
		}
	}
}
