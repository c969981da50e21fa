package api

import (
	"crypto/tls"
	"crypto/x509"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl/plain"
	"go.uber.org/zap"
)

// CreateKafkaTransport создает транспорт для Kafka writer с SASL/PLAIN и TLS.
// TLS включается при SASL (управляемые кластеры требуют TLS) или при наличии CA.
func CreateKafkaTransport(username, password, caCert string, log *zap.Logger) *kafka.Transport {
	if log == nil {
		log = zap.NewNop()
	}
	transport := &kafka.Transport{
		DialTimeout: 10 * time.Second,
		ClientID:    "wheatflow-production",
	}

	if username != "" && password != "" {
		transport.SASL = plain.Mechanism{
			Username: username,
			Password: password,
		}
		log.Info("kafka: SASL/PLAIN включен", zap.String("username", username))
	}

	if transport.SASL == nil && caCert == "" {
		return transport
	}

	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}
	if caCert != "" {
		pool := x509.NewCertPool()
		if pool.AppendCertsFromPEM([]byte(caCert)) {
			tlsConfig.RootCAs = pool
			log.Info("kafka: TLS с CA сертификатом")
		} else {
			log.Warn("kafka: не удалось разобрать CA сертификат, используются системные")
		}
	}
	transport.TLS = tlsConfig
	return transport
}

// ParseKafkaBrokers разбирает список брокеров через запятую
func ParseKafkaBrokers(brokers string) []string {
	if brokers == "" {
		return []string{}
	}
	var result []string
	for _, broker := range strings.Split(strings.ReplaceAll(brokers, " ", ""), ",") {
		if broker != "" {
			result = append(result, broker)
		}
	}
	return result
}
