package mocks

//go:generate mockery --name DraftStore --srcpkg github.com/mmt-lab/draftflow/internal/core/storage --output ./storage --outpkg storagemocks --with-expecter
//go:generate mockery --name Dispatcher --srcpkg github.com/mmt-lab/draftflow/internal/notify --output ./notify --outpkg notifymocks --with-expecter
