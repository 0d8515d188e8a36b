package secrets

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
)

// Cipher 采集口令的 RSA 加解密器。口令入库前加密，下发前解密。
type Cipher struct {
	private *rsa.PrivateKey
	public  *rsa.PublicKey
}

// NewCipher 从 PEM 私钥构建，公钥从私钥派生
func NewCipher(privateKeyPEM []byte) (*Cipher, error) {
	block, _ := pem.Decode(privateKeyPEM)
	if block == nil {
		return nil, fmt.Errorf("私钥 PEM 解码失败")
	}

	key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		pkcs8, perr := x509.ParsePKCS8PrivateKey(block.Bytes)
		if perr != nil {
			return nil, fmt.Errorf("私钥解析失败: %w", err)
		}
		rsaKey, ok := pkcs8.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("私钥不是 RSA 类型")
		}
		key = rsaKey
	}

	return &Cipher{
		private: key,
		public:  &key.PublicKey,
	}, nil
}

// Encrypt 加密并 base64 编码
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	data, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, c.public, []byte(plaintext), nil)
	if err != nil {
		return "", fmt.Errorf("加密失败: %w", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// Decrypt 解密 base64 编码的密文
func (c *Cipher) Decrypt(ciphertext string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("密文解码失败: %w", err)
	}
	plain, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, c.private, data, nil)
	if err != nil {
		return "", fmt.Errorf("解密失败: %w", err)
	}
	return string(plain), nil
}

// GenerateKey 生成 2048 位私钥 PEM，初始化部署时使用
func GenerateKey() ([]byte, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, fmt.Errorf("生成私钥失败: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	}), nil
}
