// Command kisan is the terminal client for the KisanBazaar marketplace.
//
// Install:
//
//	go install github.com/shashiranjanraj/kisanbazaar/cmd/kisan@latest
//
// Typical session:
//
//	kisan login --email asha@example.com
//	kisan products list --search tomato --max 40
//	kisan cart add 665f1c...
//	kisan cart inc 665f1c...
//	kisan checkout
//	kisan orders mine
//	kisan chat
//
// The cart and the login survive between runs in LOCAL_STORE (a directory
// under $HOME by default; redis, sql and s3 drivers are available). See
// config/app.json for every setting.
package main
