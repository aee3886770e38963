package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ClientPending  = "Pending"
	ClientActive   = "Active"
	ClientInactive = "Inactive"
)

var ClientStatuses = []string{ClientPending, ClientActive, ClientInactive}

type Client struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone"`
	CompanyName string    `json:"companyName"`
	Address     string    `json:"address"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ClientRef 是其他实体 join 出来的客户摘要
type ClientRef struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

// ClientPatch 部分更新，nil 字段保持不变
type ClientPatch struct {
	Name        *string
	Email       *string
	Phone       *string
	CompanyName *string
	Address     *string
	Status      *string
}

func (p ClientPatch) Apply(c *Client) {
	setString(&c.Name, p.Name)
	setString(&c.Email, p.Email)
	setString(&c.Phone, p.Phone)
	setString(&c.CompanyName, p.CompanyName)
	setString(&c.Address, p.Address)
	setString(&c.Status, p.Status)
}
