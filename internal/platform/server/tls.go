package server

import (
	"crypto/tls"
	"fmt"
)

// LoadTLSConfig 載入 HTTPS 伺服器的 TLS 配置
func LoadTLSConfig(certFile, keyFile string) (*tls.Config, error) {
	if certFile == "" || keyFile == "" {
		return nil, fmt.Errorf("HTTPS 已啟用但未設置憑證路徑")
	}

	// 載入服務器憑證和私鑰
	serverCert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load server certificate: %v", err)
	}

	return &tls.Config{
		Certificates: []tls.Certificate{serverCert},
		MinVersion:   tls.VersionTLS13, // 只接受 TLS 1.3
	}, nil
}
