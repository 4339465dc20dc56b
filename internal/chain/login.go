package chain

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// LoginMessage 生成钱包登录签名消息，与工厂合约地址绑定
func LoginMessage(factory common.Address) string {
	return fmt.Sprintf("Welcome to clr.fund!\n\n"+
		"To get logged in, sign this message to prove you have access to this wallet. "+
		"This does not cost any ether.\n\n"+
		"You will be asked to sign each time you load the app.\n\n"+
		"Contract address: %s.", strings.ToLower(factory.Hex()))
}
