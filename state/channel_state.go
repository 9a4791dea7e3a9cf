package state

import (
	"sort"
	"sync"
	"time"

	"github.com/akinalp/chatkit/models"
	"github.com/akinalp/chatkit/pkg/cache"
)

// ChannelState, izlenen (watched) TEK bir kanalın canlı state'ini tutar.
//
// Sıralama invariant'ı: Messages hücresindeki liste HER ZAMAN
// (CreatedAt, ID) artan sıradadır. Event'ler transport'ta sırası
// bozulmuş gelse bile upsert doğru konuma yerleştirir.
//
// Dedup invariant'ı: Aynı ID'li mesaj listede en fazla bir kez bulunur.
// Optimistic insert + server cevabı + socket event'i aynı mesaj için
// üç ayrı upsert üretir — sonuç tek satırdır (last-writer-wins).
//
// Tüm mutation'lar içteki mutex altında çalışır; hücre publish'leri
// mutation'ın snapshot'ını taşır. Okuyucular hücrelere abone olur,
// struct'ın içine elle girmez.
type ChannelState struct {
	CID string

	mu       sync.Mutex
	messages []models.Message
	members  map[string]models.Member
	reads    map[string]models.ChannelUserRead

	// typing: userID → user. TTL dolunca kullanıcı kendiliğinden düşer —
	// explicit typing.stop event'i kaybolsa bile gösterge takılı kalmaz.
	typing *cache.TTLCache[string, models.User]

	// endReached: kanalın EN ESKİ mesajına kadar yüklendi mi.
	// true ise "load older" network'e gitmeden boş döner.
	endReached bool

	// Reaktif hücreler — UI bunlara abone olur.
	Channel  *Store[models.Channel]
	Messages *Store[[]models.Message]
	Members  *Store[[]models.Member]
	Reads    *Store[[]models.ChannelUserRead]
	Typing   *Store[[]models.User]
}

// NewChannelState, constructor.
// typingTimeout: yeni keystroke gelmezse kullanıcının typing listesinden
// düşürüleceği süre.
func NewChannelState(cid string, typingTimeout time.Duration) *ChannelState {
	return &ChannelState{
		CID:      cid,
		members:  make(map[string]models.Member),
		reads:    make(map[string]models.ChannelUserRead),
		typing:   cache.New[string, models.User](typingTimeout, time.Second),
		Channel:  NewStore(models.Channel{CID: cid}),
		Messages: NewStore[[]models.Message](nil),
		Members:  NewStore[[]models.Member](nil),
		Reads:    NewStore[[]models.ChannelUserRead](nil),
		Typing:   NewStore[[]models.User](nil),
	}
}

// Close, typing cache'inin arka plan goroutine'ini durdurur.
func (s *ChannelState) Close() {
	s.typing.Close()
}

// SetChannel, kanal metadata'sını günceller (channel.updated, query cevabı).
func (s *ChannelState) SetChannel(channel models.Channel) {
	s.Channel.Set(channel)
}

// ─── Mesajlar ───────────────────────────────────────────────────────

// SetMessages, mesaj listesini komple değiştirir (ilk watch cevabı).
// Liste sıralanır ve ID bazında dedup edilir.
func (s *ChannelState) SetMessages(messages []models.Message) {
	s.mu.Lock()
	s.messages = normalizeMessages(messages)
	snapshot := snapshotMessages(s.messages)
	s.mu.Unlock()

	s.Messages.Set(snapshot)
}

// UpsertMessage, tek bir mesajı sıralı listeye merge eder.
// Aynı ID varsa yerine yazılır (pozisyon CreatedAt'e göre yeniden
// hesaplanır); yoksa doğru konuma eklenir.
func (s *ChannelState) UpsertMessage(message models.Message) {
	s.mu.Lock()
	s.messages = upsertOrdered(s.messages, message)
	snapshot := snapshotMessages(s.messages)
	s.mu.Unlock()

	s.Messages.Set(snapshot)
}

// MergeMessages, bir sayfa mesajı mevcut listeye merge eder
// (load older/newer cevapları). Tek tek upsert ile aynı invariant'lar.
func (s *ChannelState) MergeMessages(messages []models.Message) {
	s.mu.Lock()
	for _, message := range messages {
		s.messages = upsertOrdered(s.messages, message)
	}
	snapshot := snapshotMessages(s.messages)
	s.mu.Unlock()

	s.Messages.Set(snapshot)
}

// RemoveAllMessages, kanalın tüm mesajlarını düşürür (channel.truncated).
func (s *ChannelState) RemoveAllMessages() {
	s.mu.Lock()
	s.messages = nil
	s.endReached = false
	s.mu.Unlock()

	s.Messages.Set(nil)
}

// GetMessage, ID ile mesaj arar — reaction event'leri mevcut mesajın
// üstünde çalışır.
func (s *ChannelState) GetMessage(id string) (models.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, message := range s.messages {
		if message.ID == id {
			return message, true
		}
	}
	return models.Message{}, false
}

// OldestMessageID, listedeki en eski mesajın ID'sini döner —
// "load older" cursor'u. Liste boşsa "" döner.
func (s *ChannelState) OldestMessageID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.messages) == 0 {
		return ""
	}
	return s.messages[0].ID
}

// NewestMessageID, listedeki en yeni mesajın ID'sini döner.
func (s *ChannelState) NewestMessageID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.messages) == 0 {
		return ""
	}
	return s.messages[len(s.messages)-1].ID
}

// SetEndReached, "en eski mesaja ulaşıldı" işaretini günceller.
// Server, istenen limitten az mesaj döndüğünde işaretlenir.
func (s *ChannelState) SetEndReached(reached bool) {
	s.mu.Lock()
	s.endReached = reached
	s.mu.Unlock()
}

// EndReached, kanal geçmişinin sonuna ulaşılıp ulaşılmadığını döner.
func (s *ChannelState) EndReached() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.endReached
}

// ─── Üyeler ─────────────────────────────────────────────────────────

// SetMembers, üye listesini komple değiştirir.
func (s *ChannelState) SetMembers(members []models.Member) {
	s.mu.Lock()
	s.members = make(map[string]models.Member, len(members))
	for _, member := range members {
		s.members[member.UserID] = member
	}
	snapshot := s.memberSnapshot()
	s.mu.Unlock()

	s.Members.Set(snapshot)
}

// UpsertMember, tek üye ekler/günceller (member.added).
func (s *ChannelState) UpsertMember(member models.Member) {
	s.mu.Lock()
	s.members[member.UserID] = member
	snapshot := s.memberSnapshot()
	s.mu.Unlock()

	s.Members.Set(snapshot)
}

// RemoveMember, üyeyi düşürür (member.removed). Yoksa etkisizdir.
func (s *ChannelState) RemoveMember(userID string) {
	s.mu.Lock()
	delete(s.members, userID)
	snapshot := s.memberSnapshot()
	s.mu.Unlock()

	s.Members.Set(snapshot)
}

// GetMembers, mevcut üye listesinin snapshot'ını döner.
func (s *ChannelState) GetMembers() []models.Member {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.memberSnapshot()
}

// memberSnapshot — caller lock tutmalı. Deterministik sıra için
// user id'ye göre sıralanır.
func (s *ChannelState) memberSnapshot() []models.Member {
	members := make([]models.Member, 0, len(s.members))
	for _, member := range s.members {
		members = append(members, member)
	}
	sort.Slice(members, func(i, j int) bool {
		return members[i].UserID < members[j].UserID
	})
	return members
}

// ─── Read state ─────────────────────────────────────────────────────

// SetReads, read state listesini komple değiştirir (watch cevabı).
// Her kayıt forward-only kuralından geçer — elimizdekinden eski bir
// watermark mevcut kaydı geri alamaz.
func (s *ChannelState) SetReads(reads []models.ChannelUserRead) {
	s.mu.Lock()
	for _, read := range reads {
		existing, ok := s.reads[read.UserID]
		if !ok || read.LastRead.After(existing.LastRead) {
			s.reads[read.UserID] = read
		}
	}
	snapshot := s.readSnapshot()
	s.mu.Unlock()

	s.Reads.Set(snapshot)
}

// ApplyRead, tek kullanıcının watermark'ını forward-only uygular.
// Watermark ilerlemediyse false döner ve hiçbir şey yayınlanmaz.
func (s *ChannelState) ApplyRead(userID string, lastRead time.Time) bool {
	s.mu.Lock()
	read, ok := s.reads[userID]
	if !ok {
		read = models.ChannelUserRead{CID: s.CID, UserID: userID}
	}
	if !read.Apply(lastRead) {
		s.mu.Unlock()
		return false
	}
	s.reads[userID] = read
	snapshot := s.readSnapshot()
	s.mu.Unlock()

	s.Reads.Set(snapshot)
	return true
}

// IncrementUnread, kullanıcının unread sayacını artırır
// (başka kullanıcıdan yeni mesaj geldiğinde).
func (s *ChannelState) IncrementUnread(userID string) {
	s.mu.Lock()
	read, ok := s.reads[userID]
	if !ok {
		read = models.ChannelUserRead{CID: s.CID, UserID: userID}
	}
	read.UnreadMessages++
	s.reads[userID] = read
	snapshot := s.readSnapshot()
	s.mu.Unlock()

	s.Reads.Set(snapshot)
}

// GetRead, tek kullanıcının read state'ini döner.
func (s *ChannelState) GetRead(userID string) (models.ChannelUserRead, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	read, ok := s.reads[userID]
	return read, ok
}

// readSnapshot — caller lock tutmalı.
func (s *ChannelState) readSnapshot() []models.ChannelUserRead {
	reads := make([]models.ChannelUserRead, 0, len(s.reads))
	for _, read := range s.reads {
		reads = append(reads, read)
	}
	sort.Slice(reads, func(i, j int) bool {
		return reads[i].UserID < reads[j].UserID
	})
	return reads
}

// ─── Typing ─────────────────────────────────────────────────────────

// SetTyping, kullanıcıyı typing listesine ekler (typing.start).
// Kullanıcı zaten listedeyse TTL'i yenilenir.
func (s *ChannelState) SetTyping(user models.User) {
	s.typing.Set(user.ID, user)
	s.Typing.Set(s.typingSnapshot())
}

// RemoveTyping, kullanıcıyı typing listesinden düşürür (typing.stop).
func (s *ChannelState) RemoveTyping(userID string) {
	s.typing.Delete(userID)
	s.Typing.Set(s.typingSnapshot())
}

// TypingUsers, şu an yazan kullanıcıların snapshot'ını döner.
// Süresi dolmuş kayıtlar dahil edilmez.
func (s *ChannelState) TypingUsers() []models.User {
	return s.typingSnapshot()
}

func (s *ChannelState) typingSnapshot() []models.User {
	items := s.typing.Items()
	users := make([]models.User, 0, len(items))
	for _, user := range items {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool {
		return users[i].ID < users[j].ID
	})
	return users
}

// ─── Sıralı mesaj listesi yardımcıları ──────────────────────────────

// upsertOrdered, mesajı sıralı listeye merge eder.
// Önce aynı ID aranıp düşürülür, sonra binary search ile doğru konuma
// eklenir — liste her zaman (CreatedAt, ID) artan sırada kalır.
func upsertOrdered(messages []models.Message, message models.Message) []models.Message {
	for i := range messages {
		if messages[i].ID == message.ID {
			messages = append(messages[:i], messages[i+1:]...)
			break
		}
	}

	idx := sort.Search(len(messages), func(i int) bool {
		return !messages[i].Before(&message)
	})

	messages = append(messages, models.Message{})
	copy(messages[idx+1:], messages[idx:])
	messages[idx] = message
	return messages
}

// normalizeMessages, listeyi sıralar ve ID bazında dedup eder.
func normalizeMessages(messages []models.Message) []models.Message {
	var out []models.Message
	for _, message := range messages {
		out = upsertOrdered(out, message)
	}
	return out
}

// snapshotMessages, publish için kopya üretir — abonelerin elindeki
// slice sonraki mutation'lardan etkilenmez.
func snapshotMessages(messages []models.Message) []models.Message {
	if messages == nil {
		return nil
	}
	snapshot := make([]models.Message, len(messages))
	copy(snapshot, messages)
	return snapshot
}
