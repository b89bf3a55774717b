package uuid

import (
	"strings"
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
)

var (
	node *snowflake.Node
	mu   sync.Mutex
)

// GenUUID 36 位标准 uuid，用作运行 id
func GenUUID() string {
	return uuid.NewString()
}

// GenUUID16 16 位短 id，用作请求 id
func GenUUID16() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}

// InitNode 设置雪花算法节点号，多实例部署时每个实例不同
func InitNode(id int64) error {
	n, err := snowflake.NewNode(id)
	if err != nil {
		return err
	}
	mu.Lock()
	node = n
	mu.Unlock()
	return nil
}

// NextID 数据库行 id
func NextID() int64 {
	mu.Lock()
	if node == nil {
		node, _ = snowflake.NewNode(1)
	}
	n := node
	mu.Unlock()
	return n.Generate().Int64()
}
