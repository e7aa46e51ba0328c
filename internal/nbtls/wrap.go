package nbtls

import (
	"github.com/ooni/nbtls/internal/errorsx"
	"github.com/ooni/nbtls/internal/model"
	"github.com/ooni/nbtls/internal/nb"
)

// WrapTLS returns a [model.TLS] that logs the terminal outcome of each
// ConnectTLS call, counts it in the nbtls_connect_total metric and wraps
// its errors using [errorsx.TLSHandshakeOperation]. Errors that are
// already wrapped keep their major operation (e.g., connect).
func WrapTLS[S, K any](logger model.Logger, tls model.TLS[S, K]) model.TLS[S, K] {
	return &tlsWrapper[S, K]{TLS: tls, logger: model.ValidLoggerOrDefault(logger)}
}

type tlsWrapper[S, K any] struct {
	model.TLS[S, K]
	logger model.Logger
}

func (w *tlsWrapper[S, K]) ConnectTLS(socket S, remote model.HostSocketAddr, connector K) error {
	err := w.TLS.ConnectTLS(socket, remote, connector)
	if nb.IsWouldBlock(err) {
		return err
	}
	if err != nil {
		ew := errorsx.NewErrWrapper(errorsx.ClassifyTLSHandshakeError, errorsx.TLSHandshakeOperation, err)
		w.logger.Warnf("connect_tls %s... %s (%s)", remote, ew.Failure, ew.Operation)
		metricConnectCount.WithLabelValues(ew.Operation, metricOutcome(ew.Failure)).Inc()
		return ew
	}
	w.logger.Infof("connect_tls %s... ok", remote)
	metricConnectCount.WithLabelValues(errorsx.TLSHandshakeOperation, "ok").Inc()
	return nil
}
